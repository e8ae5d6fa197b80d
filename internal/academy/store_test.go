package academy_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	"github.com/mind-engage/mindengage-academy/internal/db"
)

type seedableStore interface {
	academy.Store
	PutUser(ctx context.Context, u academy.User) error
}

func openSQLite(t *testing.T) *academy.SQLStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return academy.NewSQLStore(dbh, string(db.DriverSQLite))
}

func eachStore(t *testing.T, fn func(t *testing.T, s seedableStore)) {
	t.Run("memory", func(t *testing.T) { fn(t, academy.NewInMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, openSQLite(t)) })
}

var t0 = time.Unix(1700000000, 0).UTC()

func seedCourse(t *testing.T, s academy.Store) (academy.Course, academy.Module) {
	t.Helper()
	ctx := context.Background()
	c, err := s.PutCourse(ctx, academy.Course{Title: "Safety", Slug: "safety", Order: 1, IsActive: true})
	if err != nil {
		t.Fatalf("put course: %v", err)
	}
	m, err := s.PutModule(ctx, academy.Module{CourseID: c.ID, Title: "Basics", Slug: "basics", Order: 1,
		MinScoreToPass: 80, IsMandatory: true})
	if err != nil {
		t.Fatalf("put module: %v", err)
	}
	return c, m
}

func TestCatalogOrdering(t *testing.T) {
	eachStore(t, func(t *testing.T, s seedableStore) {
		ctx := context.Background()
		c, first := seedCourse(t, s)
		second, err := s.PutModule(ctx, academy.Module{CourseID: c.ID, Title: "Tie", Slug: "tie", Order: 1})
		if err != nil {
			t.Fatalf("put module: %v", err)
		}
		zero, err := s.PutModule(ctx, academy.Module{CourseID: c.ID, Title: "Intro", Slug: "intro", Order: 0})
		if err != nil {
			t.Fatalf("put module: %v", err)
		}
		mods, err := s.ListModules(ctx, c.ID)
		if err != nil {
			t.Fatalf("list modules: %v", err)
		}
		want := []int64{zero.ID, first.ID, second.ID}
		if len(mods) != len(want) {
			t.Fatalf("got %d modules, want %d", len(mods), len(want))
		}
		for i, id := range want {
			if mods[i].ID != id {
				t.Fatalf("modules[%d] = %d, want %d", i, mods[i].ID, id)
			}
		}

		got, err := s.GetModuleBySlug(ctx, c.ID, "tie")
		if err != nil || got.ID != second.ID {
			t.Fatalf("GetModuleBySlug = %+v, %v", got, err)
		}
		if _, err := s.GetCourseBySlug(ctx, "missing"); !errors.Is(err, academy.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
		if _, err := s.PutModule(ctx, academy.Module{CourseID: 9999, Slug: "x"}); academy.KindOf(err) != academy.KindNotFound {
			t.Fatalf("module on missing course: want NotFound, got %v", err)
		}
	})
}

func TestQuestionsKeepChoiceOrder(t *testing.T) {
	eachStore(t, func(t *testing.T, s seedableStore) {
		ctx := context.Background()
		_, m := seedCourse(t, s)
		q2, err := s.PutQuestion(ctx, academy.Question{ModuleID: m.ID, Text: "Second", Order: 2, Choices: []academy.Choice{
			{Text: "a"}, {Text: "b", IsCorrect: true},
		}})
		if err != nil {
			t.Fatalf("put question: %v", err)
		}
		q1, err := s.PutQuestion(ctx, academy.Question{ModuleID: m.ID, Text: "First", Order: 1, Explanation: "why", Choices: []academy.Choice{
			{Text: "yes", IsCorrect: true}, {Text: "no"},
		}})
		if err != nil {
			t.Fatalf("put question: %v", err)
		}
		qs, err := s.ListQuestions(ctx, m.ID)
		if err != nil {
			t.Fatalf("list questions: %v", err)
		}
		if len(qs) != 2 || qs[0].ID != q1.ID || qs[1].ID != q2.ID {
			t.Fatalf("unexpected question order: %+v", qs)
		}
		if qs[0].Explanation != "why" || len(qs[0].Choices) != 2 || qs[0].Choices[0].Text != "yes" || !qs[0].Choices[0].IsCorrect {
			t.Fatalf("unexpected first question: %+v", qs[0])
		}
		if qs[1].Choices[1].ID != q2.Choices[1].ID {
			t.Fatalf("choice ids not preserved: %+v vs %+v", qs[1].Choices, q2.Choices)
		}

		n, err := s.DeleteQuestions(ctx, m.ID)
		if err != nil || n != 2 {
			t.Fatalf("DeleteQuestions = %d, %v", n, err)
		}
		qs, _ = s.ListQuestions(ctx, m.ID)
		if len(qs) != 0 {
			t.Fatalf("questions left after delete: %d", len(qs))
		}
	})
}

func TestCompleteLessonKeepsFirstTimestamp(t *testing.T) {
	eachStore(t, func(t *testing.T, s seedableStore) {
		ctx := context.Background()
		_, m := seedCourse(t, s)
		l1, _ := s.PutLesson(ctx, academy.Lesson{ModuleID: m.ID, Title: "L1", Order: 1})
		l2, _ := s.PutLesson(ctx, academy.Lesson{ModuleID: m.ID, Title: "L2", Order: 2})

		if _, err := s.GetLessonProgress(ctx, "u1", l1.ID); !errors.Is(err, academy.ErrNotFound) {
			t.Fatalf("want not found before completion, got %v", err)
		}
		lp, err := s.CompleteLesson(ctx, "u1", l1.ID, t0)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if !lp.Completed || lp.CompletedAt == nil || !lp.CompletedAt.Equal(t0) {
			t.Fatalf("unexpected progress: %+v", lp)
		}
		lp, err = s.CompleteLesson(ctx, "u1", l1.ID, t0.Add(time.Hour))
		if err != nil {
			t.Fatalf("complete again: %v", err)
		}
		if !lp.CompletedAt.Equal(t0) {
			t.Fatalf("completedAt moved to %v", lp.CompletedAt)
		}

		n, err := s.CountCompletedLessons(ctx, "u1", m.ID)
		if err != nil || n != 1 {
			t.Fatalf("CountCompletedLessons = %d, %v", n, err)
		}
		_, _ = s.CompleteLesson(ctx, "u1", l2.ID, t0)
		_, _ = s.CompleteLesson(ctx, "u2", l2.ID, t0)
		if n, _ := s.CountCompletedLessons(ctx, "u1", m.ID); n != 2 {
			t.Fatalf("CountCompletedLessons = %d, want 2", n)
		}
		if _, err := s.CompleteLesson(ctx, "u1", 424242, t0); academy.KindOf(err) != academy.KindNotFound {
			t.Fatalf("missing lesson: want NotFound, got %v", err)
		}
	})
}

func TestUpdateModuleProgress(t *testing.T) {
	eachStore(t, func(t *testing.T, s seedableStore) {
		ctx := context.Background()
		_, m := seedCourse(t, s)

		var seen academy.ModuleProgress
		p, err := s.UpdateModuleProgress(ctx, "u1", m.ID, func(p *academy.ModuleProgress) error {
			seen = *p
			p.Status = academy.StatusInProgress
			p.Score = 50
			at := t0
			p.LastAttemptAt = &at
			return nil
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if seen.Status != academy.StatusNotStarted || seen.Score != 0 {
			t.Fatalf("default row not handed to fn: %+v", seen)
		}
		if p.Status != academy.StatusInProgress || p.Score != 50 || p.LastAttemptAt == nil || !p.LastAttemptAt.Equal(t0) {
			t.Fatalf("unexpected result: %+v", p)
		}

		boom := errors.New("boom")
		if _, err := s.UpdateModuleProgress(ctx, "u1", m.ID, func(p *academy.ModuleProgress) error {
			p.Score = 99
			return boom
		}); !errors.Is(err, boom) {
			t.Fatalf("want fn error, got %v", err)
		}
		got, err := s.GetModuleProgress(ctx, "u1", m.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Score != 50 {
			t.Fatalf("failed update persisted: %+v", got)
		}

		if _, err := s.UpdateModuleProgress(ctx, "u1", 777, func(*academy.ModuleProgress) error { return nil }); academy.KindOf(err) != academy.KindNotFound {
			t.Fatalf("missing module: want NotFound, got %v", err)
		}

		all, err := s.ListModuleProgress(ctx, "")
		if err != nil || len(all) != 1 {
			t.Fatalf("ListModuleProgress = %+v, %v", all, err)
		}
	})
}

func TestUpdateModuleProgressFromLessons(t *testing.T) {
	eachStore(t, func(t *testing.T, s seedableStore) {
		ctx := context.Background()
		_, m := seedCourse(t, s)

		var lessons []academy.Lesson
		for i := 1; i <= 6; i++ {
			l, err := s.PutLesson(ctx, academy.Lesson{ModuleID: m.ID, Title: fmt.Sprintf("L%d", i), Order: i})
			if err != nil {
				t.Fatalf("put lesson: %v", err)
			}
			lessons = append(lessons, l)
		}

		// each writer completes its lesson, then rewrites the score from the counts
		// it sees under the lock; the last writer must see every completion
		var wg sync.WaitGroup
		for _, l := range lessons {
			wg.Add(1)
			go func(l academy.Lesson) {
				defer wg.Done()
				if _, err := s.CompleteLesson(ctx, "u1", l.ID, t0); err != nil {
					t.Errorf("complete: %v", err)
					return
				}
				if _, err := s.UpdateModuleProgressFromLessons(ctx, "u1", m.ID, func(p *academy.ModuleProgress, done, total int) error {
					p.Score = 100 * done / total
					return nil
				}); err != nil {
					t.Errorf("update: %v", err)
				}
			}(l)
		}
		wg.Wait()

		got, err := s.GetModuleProgress(ctx, "u1", m.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Score != 100 {
			t.Fatalf("score = %d after all lessons completed", got.Score)
		}

		var seenDone, seenTotal int
		if _, err := s.UpdateModuleProgressFromLessons(ctx, "u2", m.ID, func(p *academy.ModuleProgress, done, total int) error {
			seenDone, seenTotal = done, total
			return nil
		}); err != nil {
			t.Fatalf("update u2: %v", err)
		}
		if seenDone != 0 || seenTotal != 6 {
			t.Fatalf("u2 counts = %d/%d", seenDone, seenTotal)
		}
		if _, err := s.UpdateModuleProgressFromLessons(ctx, "u1", 777, func(*academy.ModuleProgress, int, int) error { return nil }); academy.KindOf(err) != academy.KindNotFound {
			t.Fatalf("missing module: want NotFound, got %v", err)
		}
	})
}

func TestCreateCertificateIsIdempotent(t *testing.T) {
	eachStore(t, func(t *testing.T, s seedableStore) {
		ctx := context.Background()
		c, m := seedCourse(t, s)

		first, created, err := s.CreateCertificate(ctx, academy.Certificate{UserID: "u1", CourseID: c.ID, ModuleID: m.ID,
			Score: 90, CertificateNumber: "CERT-1", IssuedAt: t0})
		if err != nil || !created {
			t.Fatalf("first create = %+v, %v, %v", first, created, err)
		}
		second, created, err := s.CreateCertificate(ctx, academy.Certificate{UserID: "u1", CourseID: c.ID, ModuleID: m.ID,
			Score: 100, CertificateNumber: "CERT-2", IssuedAt: t0.Add(time.Minute)})
		if err != nil {
			t.Fatalf("second create: %v", err)
		}
		if created || second.ID != first.ID || second.CertificateNumber != "CERT-1" || second.Score != 90 {
			t.Fatalf("second create returned %+v (created=%v), want the first certificate", second, created)
		}

		certs, err := s.ListCertificates(ctx)
		if err != nil || len(certs) != 1 {
			t.Fatalf("ListCertificates = %+v, %v", certs, err)
		}
		found, err := s.FindCertificate(ctx, "u1", m.ID)
		if err != nil || found.ID != first.ID || !found.IssuedAt.Equal(t0) {
			t.Fatalf("FindCertificate = %+v, %v", found, err)
		}
		if _, err := s.FindCertificate(ctx, "u2", m.ID); !errors.Is(err, academy.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})
}

func TestSubmissionsRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s seedableStore) {
		ctx := context.Background()
		_, m := seedCourse(t, s)
		choice := int64(7)
		text := "yes"
		sub, err := s.CreateSubmission(ctx, academy.FinalTestSubmission{UserID: "u1", ModuleID: m.ID, SubmittedAt: t0,
			Answers: []academy.AnswerSnapshot{
				{QuestionID: 1, QuestionText: "Q1", SelectedChoiceID: &choice, SelectedChoiceText: &text, CorrectChoiceText: &text, IsCorrect: true},
				{QuestionID: 2, QuestionText: "Q2"},
			}})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		later, _ := s.CreateSubmission(ctx, academy.FinalTestSubmission{UserID: "u2", ModuleID: m.ID, SubmittedAt: t0.Add(time.Hour)})

		got, err := s.GetSubmission(ctx, sub.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(got.Answers) != 2 || got.Answers[0].SelectedChoiceID == nil || *got.Answers[0].SelectedChoiceID != 7 ||
			got.Answers[1].SelectedChoiceID != nil || got.Reviewed || got.IsPassed {
			t.Fatalf("unexpected submission: %+v", got)
		}

		list, err := s.ListSubmissions(ctx, academy.SubmissionListOpts{})
		if err != nil || len(list) != 2 || list[0].ID != later.ID {
			t.Fatalf("ListSubmissions = %+v, %v", list, err)
		}
		list, _ = s.ListSubmissions(ctx, academy.SubmissionListOpts{UserID: "u1"})
		if len(list) != 1 || list[0].ID != sub.ID {
			t.Fatalf("filtered list = %+v", list)
		}

		rev, err := s.ReviewSubmission(ctx, sub.ID, academy.ReviewInput{Passed: true, Feedback: "ok", ReviewedBy: "boss", ReviewedAt: t0.Add(2 * time.Hour)})
		if err != nil {
			t.Fatalf("review: %v", err)
		}
		if !rev.Reviewed || !rev.IsPassed || rev.Feedback != "ok" || rev.ReviewedBy != "boss" || rev.ReviewedAt == nil {
			t.Fatalf("unexpected review: %+v", rev)
		}
		if _, err := s.ReviewSubmission(ctx, 9999, academy.ReviewInput{ReviewedAt: t0}); academy.KindOf(err) != academy.KindNotFound {
			t.Fatalf("missing submission: want NotFound, got %v", err)
		}
	})
}

func TestAssignmentsAndUsers(t *testing.T) {
	eachStore(t, func(t *testing.T, s seedableStore) {
		ctx := context.Background()
		c, _ := seedCourse(t, s)
		other, _ := s.PutCourse(ctx, academy.Course{Title: "Other", Slug: "other", Order: 2, IsActive: true})

		if err := s.PutUser(ctx, academy.User{ID: "u1", Username: "ann", Role: academy.RoleLearner, IsActive: true, GroupIDs: []string{"g1"}}); err != nil {
			t.Fatalf("put user: %v", err)
		}
		if err := s.PutUser(ctx, academy.User{ID: "m1", Username: "max", Role: academy.RoleManager, IsActive: true}); err != nil {
			t.Fatalf("put user: %v", err)
		}

		first, err := s.AssignCourse(ctx, academy.CourseAssignment{CourseID: c.ID, UserID: "u1", AssignedAt: t0})
		if err != nil {
			t.Fatalf("assign: %v", err)
		}
		again, err := s.AssignCourse(ctx, academy.CourseAssignment{CourseID: c.ID, UserID: "u1", AssignedAt: t0.Add(time.Hour)})
		if err != nil || again.ID != first.ID || !again.AssignedAt.Equal(t0) {
			t.Fatalf("repeated assign = %+v, %v; want %+v", again, err, first)
		}
		if _, err := s.AssignCourse(ctx, academy.CourseAssignment{CourseID: c.ID, UserID: "u1", GroupID: "g1", AssignedAt: t0}); academy.KindOf(err) != academy.KindValidation {
			t.Fatalf("user and group: want validation failure, got %v", err)
		}
		if _, err := s.AssignCourse(ctx, academy.CourseAssignment{CourseID: other.ID, GroupID: "g1", AssignedAt: t0}); err != nil {
			t.Fatalf("assign group: %v", err)
		}
		if _, err := s.AssignCourse(ctx, academy.CourseAssignment{CourseID: c.ID, GroupID: "g1", AssignedAt: t0}); err != nil {
			t.Fatalf("assign group: %v", err)
		}

		u, err := s.GetUserByUsername(ctx, "ann")
		if err != nil || len(u.GroupIDs) != 1 {
			t.Fatalf("GetUserByUsername = %+v, %v", u, err)
		}
		ids, err := s.AssignedCourseIDs(ctx, u.ID, u.GroupIDs)
		if err != nil || len(ids) != 2 || ids[0] != c.ID || ids[1] != other.ID {
			t.Fatalf("AssignedCourseIDs = %v, %v", ids, err)
		}
		ids, _ = s.AssignedCourseIDs(ctx, "nobody", nil)
		if len(ids) != 0 {
			t.Fatalf("unassigned user sees %v", ids)
		}

		managers, err := s.ListUsers(ctx, academy.RoleManager, academy.RoleAdmin)
		if err != nil || len(managers) != 1 || managers[0].ID != "m1" {
			t.Fatalf("ListUsers = %+v, %v", managers, err)
		}
	})
}
