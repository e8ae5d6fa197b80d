package progress

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/mind-engage/mindengage-academy/internal/academy"
)

// CourseSummary is a learner's dashboard line for one course.
type CourseSummary struct {
	Course        academy.Course `json:"course"`
	PassedModules int            `json:"completed_modules"`
	TotalModules  int            `json:"total_modules"`
	Percent       int            `json:"progress_percent"`
}

// MatrixCell is one (user, module) entry of the manager progress view. Score is nil
// when the user never touched the module.
type MatrixCell struct {
	UserID      string         `json:"user_id"`
	Username    string         `json:"username"`
	CourseID    int64          `json:"course_id"`
	ModuleID    int64          `json:"module_id"`
	ModuleTitle string         `json:"module_title"`
	Status      academy.Status `json:"status"`
	Score       *int           `json:"score"`
	Passed      bool           `json:"passed"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

type Reporter struct {
	store academy.Store
}

func NewReporter(store academy.Store) *Reporter {
	return &Reporter{store: store}
}

// Summarize counts passed modules of a course. An empty course reports 0%.
func (r *Reporter) Summarize(ctx context.Context, userID string, course academy.Course) (CourseSummary, error) {
	mods, err := r.store.ListModules(ctx, course.ID)
	if err != nil {
		return CourseSummary{}, err
	}
	s := CourseSummary{Course: course, TotalModules: len(mods)}
	for _, m := range mods {
		p, err := r.store.GetModuleProgress(ctx, userID, m.ID)
		if errors.Is(err, academy.ErrNotFound) {
			continue
		}
		if err != nil {
			return CourseSummary{}, err
		}
		if p.Passed(m.MinScoreToPass) {
			s.PassedModules++
		}
	}
	denom := s.TotalModules
	if denom == 0 {
		denom = 1
	}
	s.Percent = 100 * s.PassedModules / denom
	return s, nil
}

// Matrix lists every user against every module of every course, users by username and
// modules by (course order, module order, id).
func (r *Reporter) Matrix(ctx context.Context, users []academy.User) ([]MatrixCell, error) {
	courses, err := r.store.ListCourses(ctx, false)
	if err != nil {
		return nil, err
	}
	var mods []academy.Module
	for _, c := range courses {
		ms, err := r.store.ListModules(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		mods = append(mods, ms...)
	}

	all, err := r.store.ListModuleProgress(ctx, "")
	if err != nil {
		return nil, err
	}
	type key struct {
		user   string
		module int64
	}
	byKey := make(map[key]academy.ModuleProgress, len(all))
	for _, p := range all {
		byKey[key{p.UserID, p.ModuleID}] = p
	}

	users = append([]academy.User(nil), users...)
	sort.SliceStable(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	out := make([]MatrixCell, 0, len(users)*len(mods))
	for _, u := range users {
		for _, m := range mods {
			cell := MatrixCell{
				UserID: u.ID, Username: u.Username,
				CourseID: m.CourseID, ModuleID: m.ID, ModuleTitle: m.Title,
				Status: academy.StatusNotStarted,
			}
			if p, ok := byKey[key{u.ID, m.ID}]; ok {
				score := p.Score
				cell.Status = p.Status
				cell.Score = &score
				cell.Passed = p.Passed(m.MinScoreToPass)
				cell.CompletedAt = p.CompletedAt
			}
			out = append(out, cell)
		}
	}
	return out, nil
}
