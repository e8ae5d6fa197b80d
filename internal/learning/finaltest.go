package learning

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	"github.com/mind-engage/mindengage-academy/internal/grading"
	"github.com/mind-engage/mindengage-academy/internal/notify"
)

const (
	EventFinalTestSubmitted = "final_test.submitted"
	EventFinalTestReviewed  = "final_test.reviewed"
)

type FinalTestReceipt struct {
	Submission   academy.FinalTestSubmission `json:"submission"`
	Correct      int                         `json:"correct"`
	Total        int                         `json:"total"`
	ScorePercent int                         `json:"score_percent"`
}

// FinalTestRow is a submission as listed for reviewers.
type FinalTestRow struct {
	Submission academy.FinalTestSubmission `json:"submission"`
	Username   string                      `json:"username"`
	Course     academy.Course              `json:"course"`
	Module     academy.Module              `json:"module"`
	Stats      grading.Summary             `json:"stats"`
}

type ReviewOutcome struct {
	Submission  academy.FinalTestSubmission `json:"submission"`
	Progress    *academy.ModuleProgress     `json:"module_progress,omitempty"`
	Certificate *academy.Certificate        `json:"certificate,omitempty"`
}

// SubmitFinalTest stores the marked answers for manual review and tells the
// reviewers. Module progress is not touched until a reviewer passes it.
func (s *Service) SubmitFinalTest(ctx context.Context, actor academy.User, courseSlug, moduleSlug string, answers grading.Submission, now time.Time) (_ FinalTestReceipt, err error) {
	ctx, span := s.start(ctx, "SubmitFinalTest", actor)
	defer func() { finish(span, err) }()

	if answers == nil {
		return FinalTestReceipt{}, errMissingAnswers
	}

	course, mod, questions, err := s.openAssessment(ctx, actor, courseSlug, moduleSlug,
		academy.Gap(CodeNoFinalTestQuestions, "final test questions have not been set up yet"))
	if err != nil {
		return FinalTestReceipt{}, err
	}

	res := grading.Mark(questions, answers)
	sub, err := s.store.CreateSubmission(ctx, academy.FinalTestSubmission{
		UserID:      actor.ID,
		ModuleID:    mod.ID,
		SubmittedAt: now,
		Answers:     res.Answers,
	})
	if err != nil {
		return FinalTestReceipt{}, err
	}
	span.SetAttributes(attribute.Int64("academy.submission_id", sub.ID), attribute.Int("academy.score", res.ScorePercent))
	s.log.Info("final test submitted", "submission_id", sub.ID, "user", actor.ID, "module_id", mod.ID, "score", res.ScorePercent)

	reviewers, err := s.reviewerEmails(ctx)
	if err != nil {
		s.log.Warn("listing reviewers failed", "error", err)
	}
	s.notify(ctx, notify.Message{
		Subject: fmt.Sprintf("[MindEngage Academy] Final test submitted: %s – %s (%d%%)", actor.Username, course.Title, res.ScorePercent),
		Body:    finalTestBody(actor, course, mod, sub, res),
		To:      reviewers,
	})
	s.record(ctx, EventFinalTestSubmitted, strconv.FormatInt(sub.ID, 10), map[string]any{
		"user_id":       actor.ID,
		"module_id":     mod.ID,
		"score_percent": res.ScorePercent,
	}, now)

	return FinalTestReceipt{Submission: sub, Correct: res.Correct, Total: res.Total, ScorePercent: res.ScorePercent}, nil
}

// reviewerEmails are the addresses of active managers and admins.
func (s *Service) reviewerEmails(ctx context.Context) ([]string, error) {
	users, err := s.store.ListUsers(ctx, academy.RoleManager, academy.RoleAdmin)
	if err != nil {
		return nil, err
	}
	var to []string
	for _, u := range users {
		if u.IsActive && u.Email != "" {
			to = append(to, u.Email)
		}
	}
	return to, nil
}

func finalTestBody(u academy.User, c academy.Course, m academy.Module, sub academy.FinalTestSubmission, res grading.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User: %s (%s)\n", u.DisplayName(), u.Username)
	fmt.Fprintf(&b, "Course: %s\n", c.Title)
	fmt.Fprintf(&b, "Module: %s\n", m.Title)
	fmt.Fprintf(&b, "Submitted at: %s\n", sub.SubmittedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Score: %d / %d (%d%%)\n\n", res.Correct, res.Total, res.ScorePercent)
	b.WriteString("Answers:\n")
	for i, a := range res.Answers {
		fmt.Fprintf(&b, "\n%d. Q: %s\n", i+1, a.QuestionText)
		if a.SelectedChoiceText != nil {
			fmt.Fprintf(&b, "   Selected: %s\n", *a.SelectedChoiceText)
		} else {
			b.WriteString("   Selected: (no answer selected)\n")
		}
		if a.CorrectChoiceText != nil {
			fmt.Fprintf(&b, "   Correct: %s\n", *a.CorrectChoiceText)
		} else {
			b.WriteString("   Correct: (no correct choice set)\n")
		}
		if a.IsCorrect {
			b.WriteString("   Marked: CORRECT\n")
		} else {
			b.WriteString("   Marked: INCORRECT\n")
		}
		if a.Explanation != "" {
			fmt.Fprintf(&b, "   Explanation: %s\n", a.Explanation)
		}
	}
	return b.String()
}

// ListFinalTests lists submissions newest first with recomputed statistics.
func (s *Service) ListFinalTests(ctx context.Context, actor academy.User, opts academy.SubmissionListOpts) (_ []FinalTestRow, err error) {
	ctx, span := s.start(ctx, "ListFinalTests", actor)
	defer func() { finish(span, err) }()

	if err := requireManager(actor); err != nil {
		return nil, err
	}
	subs, err := s.store.ListSubmissions(ctx, opts)
	if err != nil {
		return nil, err
	}

	users := map[string]academy.User{}
	mods := map[int64]academy.Module{}
	courses := map[int64]academy.Course{}
	rows := make([]FinalTestRow, 0, len(subs))
	for _, sub := range subs {
		u, ok := users[sub.UserID]
		if !ok {
			if u, err = s.store.GetUser(ctx, sub.UserID); err != nil && !errors.Is(err, academy.ErrNotFound) {
				return nil, err
			}
			users[sub.UserID] = u
		}
		m, ok := mods[sub.ModuleID]
		if !ok {
			if m, err = s.store.GetModule(ctx, sub.ModuleID); err != nil {
				return nil, err
			}
			mods[sub.ModuleID] = m
		}
		c, ok := courses[m.CourseID]
		if !ok {
			if c, err = s.store.GetCourse(ctx, m.CourseID); err != nil {
				return nil, err
			}
			courses[m.CourseID] = c
		}
		username := u.Username
		if username == "" {
			username = sub.UserID
		}
		rows = append(rows, FinalTestRow{
			Submission: sub,
			Username:   username,
			Course:     c,
			Module:     m,
			Stats:      grading.Summarize(sub.Answers),
		})
	}
	return rows, nil
}

// ReviewFinalTest records a reviewer's verdict. A pass completes the module at
// 100% and issues the certificate if the learner has none yet.
func (s *Service) ReviewFinalTest(ctx context.Context, actor academy.User, submissionID int64, passed bool, feedback string, now time.Time) (_ ReviewOutcome, err error) {
	ctx, span := s.start(ctx, "ReviewFinalTest", actor)
	defer func() { finish(span, err) }()
	span.SetAttributes(attribute.Int64("academy.submission_id", submissionID), attribute.Bool("academy.passed", passed))

	if err := requireManager(actor); err != nil {
		return ReviewOutcome{}, err
	}
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return ReviewOutcome{}, err
	}
	mod, err := s.store.GetModule(ctx, sub.ModuleID)
	if err != nil {
		return ReviewOutcome{}, err
	}
	learner, err := s.store.GetUser(ctx, sub.UserID)
	if err != nil {
		return ReviewOutcome{}, err
	}

	sub, err = s.store.ReviewSubmission(ctx, submissionID, academy.ReviewInput{
		Passed:     passed,
		Feedback:   feedback,
		ReviewedBy: actor.ID,
		ReviewedAt: now,
	})
	if err != nil {
		return ReviewOutcome{}, err
	}
	out := ReviewOutcome{Submission: sub}
	s.log.Info("final test reviewed", "submission_id", sub.ID, "reviewer", actor.ID, "passed", passed)
	s.record(ctx, EventFinalTestReviewed, strconv.FormatInt(sub.ID, 10), map[string]any{
		"user_id":     sub.UserID,
		"module_id":   sub.ModuleID,
		"passed":      passed,
		"reviewed_by": actor.ID,
	}, now)
	if !passed {
		return out, nil
	}

	p, err := s.tracker.RecordFinalTestReview(ctx, learner.ID, mod, true, now)
	if err != nil {
		return ReviewOutcome{}, err
	}
	out.Progress = &p
	cert, _, err := s.certs.IssueIfNeeded(ctx, learner, mod, p.Score, now)
	if err != nil {
		return ReviewOutcome{}, err
	}
	out.Certificate = &cert
	return out, nil
}
