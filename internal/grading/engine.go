package grading

import (
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-academy/internal/academy"
)

// MarkedAnswer is the outcome of marking one question. It is persisted as-is on
// final test submissions.
type MarkedAnswer = academy.AnswerSnapshot

// Submission maps question id to the raw submitted choice id.
type Submission map[int64]string

// Result is the outcome of marking a whole question set.
type Result struct {
	Answers      []MarkedAnswer
	Correct      int
	Total        int
	ScorePercent int
}

// Summary is review statistics recomputed from stored answers.
type Summary struct {
	Total        int `json:"total"`
	Correct      int `json:"correct"`
	Incorrect    int `json:"incorrect"`
	ScorePercent int `json:"score_percent"`
}

// Mark grades submitted against questions, in question order. A missing,
// unparseable or foreign choice id is recorded as no selection. Mark has no side
// effects.
func Mark(questions []academy.Question, submitted Submission) Result {
	res := Result{Answers: make([]MarkedAnswer, 0, len(questions)), Total: len(questions)}
	for _, q := range questions {
		a := markOne(q, submitted[q.ID])
		if a.IsCorrect {
			res.Correct++
		}
		res.Answers = append(res.Answers, a)
	}
	res.ScorePercent = ScorePercent(res.Correct, res.Total)
	return res
}

func markOne(q academy.Question, raw string) MarkedAnswer {
	a := MarkedAnswer{QuestionID: q.ID, QuestionText: q.Text, Explanation: q.Explanation}

	// first flagged choice in stored order is canonical
	var correct *academy.Choice
	for i := range q.Choices {
		if q.Choices[i].IsCorrect {
			correct = &q.Choices[i]
			break
		}
	}
	if correct != nil {
		text := correct.Text
		a.CorrectChoiceText = &text
	}

	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return a
	}
	for _, c := range q.Choices {
		if c.ID != id {
			continue
		}
		cid, text := c.ID, c.Text
		a.SelectedChoiceID = &cid
		a.SelectedChoiceText = &text
		a.IsCorrect = correct != nil && correct.ID == c.ID
		break
	}
	return a
}

// ScorePercent is floor(100*correct/total), or 0 for an empty set.
func ScorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return 100 * correct / total
}

func Summarize(answers []MarkedAnswer) Summary {
	s := Summary{Total: len(answers)}
	for _, a := range answers {
		if a.IsCorrect {
			s.Correct++
		}
	}
	s.Incorrect = s.Total - s.Correct
	s.ScorePercent = ScorePercent(s.Correct, s.Total)
	return s
}

// ParseSubmission reads form-style answers keyed by "<qid>" or "question_<qid>".
// Keys that do not name a question id are ignored.
func ParseSubmission(form map[string]string) Submission {
	out := Submission{}
	for k, v := range form {
		k = strings.TrimPrefix(strings.TrimSpace(k), "question_")
		qid, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		out[qid] = v
	}
	return out
}
