package progress

import (
	"context"
	"errors"
	"time"

	"github.com/mind-engage/mindengage-academy/internal/academy"
)

// Tracker keeps ModuleProgress in step with lesson completions, quiz attempts and
// final test reviews. Every mutation goes through the store's atomic progress update
// so the (user, module) row is created with defaults on first touch.
type Tracker struct {
	store academy.Store
}

func NewTracker(store academy.Store) *Tracker {
	return &Tracker{store: store}
}

// RecordLessonCompletion marks the lesson complete (idempotent) and recomputes the
// owning module from lesson completion.
func (t *Tracker) RecordLessonCompletion(ctx context.Context, userID string, lesson academy.Lesson, now time.Time) (academy.ModuleProgress, error) {
	if _, err := t.store.CompleteLesson(ctx, userID, lesson.ID, now); err != nil {
		return academy.ModuleProgress{}, err
	}
	mod, err := t.store.GetModule(ctx, lesson.ModuleID)
	if err != nil {
		return academy.ModuleProgress{}, err
	}
	return t.RecomputeModuleFromLessons(ctx, userID, mod, now)
}

// RecomputeModuleFromLessons sets score to the current lesson completion ratio.
// Unlike quiz scoring this overwrites the score, so status can move backwards when
// lessons are added to a completed module.
func (t *Tracker) RecomputeModuleFromLessons(ctx context.Context, userID string, mod academy.Module, now time.Time) (academy.ModuleProgress, error) {
	return t.store.UpdateModuleProgressFromLessons(ctx, userID, mod.ID, func(p *academy.ModuleProgress, done, total int) error {
		if total == 0 {
			// nothing to read: the module never blocks
			p.Score = 100
			p.Status = academy.StatusCompleted
			setCompletedOnce(p, now)
		} else {
			percent := 100 * done / total
			p.Score = percent
			switch {
			case percent == 0:
				p.Status = academy.StatusNotStarted
				p.CompletedAt = nil
			case percent < 100:
				p.Status = academy.StatusInProgress
				p.CompletedAt = nil
			default:
				p.Status = academy.StatusCompleted
				setCompletedOnce(p, now)
			}
		}
		p.LastAttemptAt = timeRef(now)
		return nil
	})
}

// RecordQuizAttempt applies a quiz score with best-score-wins semantics. passed
// reports whether the stored score now meets the module threshold.
func (t *Tracker) RecordQuizAttempt(ctx context.Context, userID string, mod academy.Module, scorePercent int, now time.Time) (academy.ModuleProgress, bool, error) {
	if scorePercent < 0 || scorePercent > 100 {
		return academy.ModuleProgress{}, false, academy.Invalid("score %d out of range", scorePercent)
	}
	var passed bool
	p, err := t.store.UpdateModuleProgress(ctx, userID, mod.ID, func(p *academy.ModuleProgress) error {
		if scorePercent > p.Score {
			p.Score = scorePercent
		}
		p.LastAttemptAt = timeRef(now)
		passed = p.Passed(mod.MinScoreToPass)
		if passed {
			p.Status = academy.StatusCompleted
			setCompletedOnce(p, now)
		} else if p.Status == academy.StatusNotStarted {
			p.Status = academy.StatusInProgress
		}
		return nil
	})
	if err != nil {
		return academy.ModuleProgress{}, false, err
	}
	return p, passed, nil
}

// RecordFinalTestReview marks the module completed with a score of 100 when a
// reviewer passes the final test. A failing verdict writes nothing: the stored row,
// or an unsaved not-started default, is returned.
func (t *Tracker) RecordFinalTestReview(ctx context.Context, userID string, mod academy.Module, passed bool, now time.Time) (academy.ModuleProgress, error) {
	if !passed {
		p, err := t.store.GetModuleProgress(ctx, userID, mod.ID)
		if errors.Is(err, academy.ErrNotFound) {
			return academy.NewModuleProgress(userID, mod.ID), nil
		}
		return p, err
	}
	return t.store.UpdateModuleProgress(ctx, userID, mod.ID, func(p *academy.ModuleProgress) error {
		p.Status = academy.StatusCompleted
		if p.Score < 100 {
			p.Score = 100
		}
		setCompletedOnce(p, now)
		p.LastAttemptAt = timeRef(now)
		return nil
	})
}

func setCompletedOnce(p *academy.ModuleProgress, now time.Time) {
	if p.CompletedAt == nil {
		p.CompletedAt = timeRef(now)
	}
}

func timeRef(t time.Time) *time.Time { return &t }
