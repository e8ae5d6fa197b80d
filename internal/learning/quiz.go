package learning

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	"github.com/mind-engage/mindengage-academy/internal/grading"
)

// QuizChoice is a choice as shown to a learner, without its correctness flag.
type QuizChoice struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type QuizQuestion struct {
	ID      int64        `json:"id"`
	Text    string       `json:"text"`
	Order   int          `json:"order"`
	Choices []QuizChoice `json:"choices"`
}

type QuizForm struct {
	Course    academy.Course `json:"course"`
	Module    academy.Module `json:"module"`
	Questions []QuizQuestion `json:"questions"`
}

type QuizOutcome struct {
	Course       academy.Course         `json:"course"`
	Module       academy.Module         `json:"module"`
	Answers      []grading.MarkedAnswer `json:"answers"`
	Correct      int                    `json:"correct"`
	Total        int                    `json:"total"`
	ScorePercent int                    `json:"score_percent"`
	Passed       bool                   `json:"passed"`
	Progress     academy.ModuleProgress `json:"module_progress"`
	Certificate  *academy.Certificate   `json:"certificate,omitempty"`
}

// QuizForm returns the module's questions for answering.
func (s *Service) QuizForm(ctx context.Context, actor academy.User, courseSlug, moduleSlug string) (_ QuizForm, err error) {
	ctx, span := s.start(ctx, "QuizForm", actor)
	defer func() { finish(span, err) }()

	course, mod, questions, err := s.openAssessment(ctx, actor, courseSlug, moduleSlug,
		academy.Gap(CodeNoQuestions, "no questions have been set up for this module yet"))
	if err != nil {
		return QuizForm{}, err
	}
	form := QuizForm{Course: course, Module: mod, Questions: make([]QuizQuestion, 0, len(questions))}
	for _, q := range questions {
		qq := QuizQuestion{ID: q.ID, Text: q.Text, Order: q.Order, Choices: make([]QuizChoice, 0, len(q.Choices))}
		for _, c := range q.Choices {
			qq.Choices = append(qq.Choices, QuizChoice{ID: c.ID, Text: c.Text})
		}
		form.Questions = append(form.Questions, qq)
	}
	return form, nil
}

// SubmitQuiz marks the answers, records the attempt and, for a passed final
// assessment, issues the certificate with the stored best score.
func (s *Service) SubmitQuiz(ctx context.Context, actor academy.User, courseSlug, moduleSlug string, answers grading.Submission, now time.Time) (_ QuizOutcome, err error) {
	ctx, span := s.start(ctx, "SubmitQuiz", actor)
	defer func() { finish(span, err) }()

	if answers == nil {
		return QuizOutcome{}, errMissingAnswers
	}

	course, mod, questions, err := s.openAssessment(ctx, actor, courseSlug, moduleSlug,
		academy.Gap(CodeNoQuestions, "no questions have been set up for this module yet"))
	if err != nil {
		return QuizOutcome{}, err
	}

	res := grading.Mark(questions, answers)
	p, passed, err := s.tracker.RecordQuizAttempt(ctx, actor.ID, mod, res.ScorePercent, now)
	if err != nil {
		return QuizOutcome{}, err
	}
	span.SetAttributes(attribute.Int("academy.score", res.ScorePercent), attribute.Bool("academy.passed", passed))

	out := QuizOutcome{
		Course:       course,
		Module:       mod,
		Answers:      res.Answers,
		Correct:      res.Correct,
		Total:        res.Total,
		ScorePercent: res.ScorePercent,
		Passed:       passed,
		Progress:     p,
	}
	if passed && mod.IsFinalAssessment {
		cert, _, err := s.certs.IssueIfNeeded(ctx, actor, mod, p.Score, now)
		if err != nil {
			return QuizOutcome{}, err
		}
		out.Certificate = &cert
	}
	s.log.Info("quiz submitted", "user", actor.ID, "module_id", mod.ID, "score", res.ScorePercent, "passed", passed)
	return out, nil
}

var errMissingAnswers = academy.Invalid("answers are required")

// openAssessment resolves and gates the module and loads its questions. empty is
// returned when the module has none.
func (s *Service) openAssessment(ctx context.Context, actor academy.User, courseSlug, moduleSlug string, empty error) (academy.Course, academy.Module, []academy.Question, error) {
	course, mod, err := s.resolve(ctx, courseSlug, moduleSlug)
	if err != nil {
		return academy.Course{}, academy.Module{}, nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("academy.module_id", mod.ID))
	if err := s.ensureAccess(ctx, actor, mod); err != nil {
		return academy.Course{}, academy.Module{}, nil, err
	}
	questions, err := s.store.ListQuestions(ctx, mod.ID)
	if err != nil {
		return academy.Course{}, academy.Module{}, nil, err
	}
	if len(questions) == 0 {
		return academy.Course{}, academy.Module{}, nil, empty
	}
	return course, mod, questions, nil
}
