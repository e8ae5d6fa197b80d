package learning

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	"github.com/mind-engage/mindengage-academy/internal/progress"
)

type ModuleRow struct {
	Module    academy.Module          `json:"module"`
	Progress  *academy.ModuleProgress `json:"progress,omitempty"`
	CanAccess bool                    `json:"can_access"`
}

type CourseView struct {
	Course  academy.Course `json:"course"`
	Modules []ModuleRow    `json:"modules"`
}

type LessonRow struct {
	Lesson   academy.Lesson          `json:"lesson"`
	Progress *academy.LessonProgress `json:"progress,omitempty"`
}

type ModuleView struct {
	Course        academy.Course         `json:"course"`
	Module        academy.Module         `json:"module"`
	Lessons       []LessonRow            `json:"lessons"`
	LessonPercent int                    `json:"lesson_progress_percent"`
	Progress      academy.ModuleProgress `json:"module_progress"`
}

type LessonView struct {
	Course   academy.Course          `json:"course"`
	Module   academy.Module          `json:"module"`
	Lesson   academy.Lesson          `json:"lesson"`
	Progress *academy.LessonProgress `json:"progress,omitempty"`
	PrevID   int64                   `json:"prev_lesson_id,omitempty"`
	NextID   int64                   `json:"next_lesson_id,omitempty"`
}

type LessonCompletion struct {
	Course   academy.Course         `json:"course"`
	Module   academy.Module         `json:"module"`
	Lesson   academy.Lesson         `json:"lesson"`
	Progress academy.ModuleProgress `json:"module_progress"`
}

// Dashboard lists the active courses assigned to the actor or one of the actor's
// groups, with passed-module counts.
func (s *Service) Dashboard(ctx context.Context, actor academy.User) (_ []progress.CourseSummary, err error) {
	ctx, span := s.start(ctx, "Dashboard", actor)
	defer func() { finish(span, err) }()

	ids, err := s.store.AssignedCourseIDs(ctx, actor.ID, actor.GroupIDs)
	if err != nil {
		return nil, err
	}
	courses := make([]academy.Course, 0, len(ids))
	for _, id := range ids {
		c, err := s.store.GetCourse(ctx, id)
		if errors.Is(err, academy.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if c.IsActive {
			courses = append(courses, c)
		}
	}
	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].Order != courses[j].Order {
			return courses[i].Order < courses[j].Order
		}
		return courses[i].Title < courses[j].Title
	})

	out := make([]progress.CourseSummary, 0, len(courses))
	for _, c := range courses {
		sum, err := s.reports.Summarize(ctx, actor.ID, c)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

// CourseDetail lists the course's modules with the actor's progress and lock state.
func (s *Service) CourseDetail(ctx context.Context, actor academy.User, courseSlug string) (_ CourseView, err error) {
	ctx, span := s.start(ctx, "CourseDetail", actor)
	defer func() { finish(span, err) }()

	course, err := s.activeCourse(ctx, courseSlug)
	if err != nil {
		return CourseView{}, err
	}
	mods, err := s.store.ListModules(ctx, course.ID)
	if err != nil {
		return CourseView{}, err
	}
	view := CourseView{Course: course, Modules: make([]ModuleRow, 0, len(mods))}
	for _, m := range mods {
		row := ModuleRow{Module: m}
		p, err := s.store.GetModuleProgress(ctx, actor.ID, m.ID)
		switch {
		case err == nil:
			row.Progress = &p
		case !errors.Is(err, academy.ErrNotFound):
			return CourseView{}, err
		}
		if row.CanAccess, err = s.gate.CanAccessModule(ctx, actor.ID, m); err != nil {
			return CourseView{}, err
		}
		view.Modules = append(view.Modules, row)
	}
	return view, nil
}

// ModuleDetail gates the module, lists its lessons and refreshes the actor's
// module progress from lesson completion.
func (s *Service) ModuleDetail(ctx context.Context, actor academy.User, courseSlug, moduleSlug string, now time.Time) (_ ModuleView, err error) {
	ctx, span := s.start(ctx, "ModuleDetail", actor)
	defer func() { finish(span, err) }()

	course, mod, err := s.resolve(ctx, courseSlug, moduleSlug)
	if err != nil {
		return ModuleView{}, err
	}
	if err := s.ensureAccess(ctx, actor, mod); err != nil {
		return ModuleView{}, err
	}

	lessons, err := s.store.ListLessons(ctx, mod.ID)
	if err != nil {
		return ModuleView{}, err
	}
	view := ModuleView{Course: course, Module: mod, Lessons: make([]LessonRow, 0, len(lessons))}
	done := 0
	for _, l := range lessons {
		row := LessonRow{Lesson: l}
		lp, err := s.store.GetLessonProgress(ctx, actor.ID, l.ID)
		switch {
		case err == nil:
			row.Progress = &lp
			if lp.Completed {
				done++
			}
		case !errors.Is(err, academy.ErrNotFound):
			return ModuleView{}, err
		}
		view.Lessons = append(view.Lessons, row)
	}
	total := len(lessons)
	if total == 0 {
		total = 1
	}
	view.LessonPercent = 100 * done / total

	if view.Progress, err = s.tracker.RecomputeModuleFromLessons(ctx, actor.ID, mod, now); err != nil {
		return ModuleView{}, err
	}
	return view, nil
}

// LessonDetail shows one lesson of a gated module with the actor's completion
// state and its neighbours in lesson order. A lesson of another module is NotFound.
func (s *Service) LessonDetail(ctx context.Context, actor academy.User, courseSlug, moduleSlug string, lessonID int64) (_ LessonView, err error) {
	ctx, span := s.start(ctx, "LessonDetail", actor)
	defer func() { finish(span, err) }()

	course, mod, err := s.resolve(ctx, courseSlug, moduleSlug)
	if err != nil {
		return LessonView{}, err
	}
	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return LessonView{}, err
	}
	if lesson.ModuleID != mod.ID {
		return LessonView{}, academy.NotFound("lesson %d in module %q", lessonID, moduleSlug)
	}
	if err := s.ensureAccess(ctx, actor, mod); err != nil {
		return LessonView{}, err
	}

	view := LessonView{Course: course, Module: mod, Lesson: lesson}
	lp, err := s.store.GetLessonProgress(ctx, actor.ID, lesson.ID)
	switch {
	case err == nil:
		view.Progress = &lp
	case !errors.Is(err, academy.ErrNotFound):
		return LessonView{}, err
	}
	lessons, err := s.store.ListLessons(ctx, mod.ID)
	if err != nil {
		return LessonView{}, err
	}
	for i, l := range lessons {
		if l.ID != lesson.ID {
			continue
		}
		if i > 0 {
			view.PrevID = lessons[i-1].ID
		}
		if i+1 < len(lessons) {
			view.NextID = lessons[i+1].ID
		}
	}
	return view, nil
}

// CompleteLesson marks a lesson complete for the actor. Lesson completion is not
// gated; the module page it leads back to is.
func (s *Service) CompleteLesson(ctx context.Context, actor academy.User, lessonID int64, now time.Time) (_ LessonCompletion, err error) {
	ctx, span := s.start(ctx, "CompleteLesson", actor)
	defer func() { finish(span, err) }()

	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return LessonCompletion{}, err
	}
	mod, err := s.store.GetModule(ctx, lesson.ModuleID)
	if err != nil {
		return LessonCompletion{}, err
	}
	course, err := s.store.GetCourse(ctx, mod.CourseID)
	if err != nil {
		return LessonCompletion{}, err
	}
	p, err := s.tracker.RecordLessonCompletion(ctx, actor.ID, lesson, now)
	if err != nil {
		return LessonCompletion{}, err
	}
	return LessonCompletion{Course: course, Module: mod, Lesson: lesson, Progress: p}, nil
}
