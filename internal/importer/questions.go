package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/mind-engage/mindengage-academy/internal/academy"
)

// Result counts what an import created.
type Result struct {
	Questions int `json:"questions"`
	Choices   int `json:"choices"`
	Skipped   int `json:"skipped"`
}

// Two input shapes are accepted, told apart by the first element:
//
//	fixture: [{"model":"academy.question","pk":1,"fields":{"text":...,"order":1,"explanation":...,"module":3}},
//	          {"model":"academy.choice","pk":10,"fields":{"question":1,"text":...,"is_correct":true}}]
//	clean:   [{"text":...,"order":1,"explanation":...,"module_slug":"...","choices":[{"text":...,"is_correct":true}]}]
type fixtureEntry struct {
	Model  string          `json:"model"`
	PK     json.RawMessage `json:"pk"`
	Fields fixtureFields   `json:"fields"`
}

type fixtureFields struct {
	Text        string          `json:"text"`
	Order       *int            `json:"order"`
	Explanation string          `json:"explanation"`
	Module      *int64          `json:"module"`
	Question    json.RawMessage `json:"question"`
	IsCorrect   bool            `json:"is_correct"`
}

type cleanEntry struct {
	Text        *string       `json:"text"`
	Order       *int          `json:"order"`
	Explanation string        `json:"explanation"`
	ModuleSlug  string        `json:"module_slug"`
	Choices     []cleanChoice `json:"choices"`
}

type cleanChoice struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type Importer struct {
	store academy.Store
}

func New(store academy.Store) *Importer {
	return &Importer{store: store}
}

// Import loads questions into moduleID, first deleting the module's questions when
// deleteExisting is set. Entries may redirect themselves to another module; unknown
// targets fall back to moduleID.
func (im *Importer) Import(ctx context.Context, moduleID int64, deleteExisting bool, raw []byte) (Result, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return Result{}, academy.Invalid("invalid JSON: %v", err)
	}
	def, err := im.store.GetModule(ctx, moduleID)
	if err != nil {
		return Result{}, err
	}
	if deleteExisting {
		if _, err := im.store.DeleteQuestions(ctx, def.ID); err != nil {
			return Result{}, err
		}
	}
	if len(entries) == 0 {
		return Result{}, nil
	}
	if isFixture(entries[0]) {
		return im.importFixture(ctx, def, entries)
	}
	return im.importClean(ctx, def, entries)
}

func isFixture(first json.RawMessage) bool {
	var head map[string]json.RawMessage
	if err := json.Unmarshal(first, &head); err != nil {
		return false
	}
	_, hasModel := head["model"]
	_, hasFields := head["fields"]
	return hasModel && hasFields
}

func (im *Importer) importFixture(ctx context.Context, def academy.Module, entries []json.RawMessage) (Result, error) {
	var res Result
	var pending []academy.Question
	byPK := map[string]int{}

	for _, raw := range entries {
		var e fixtureEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			res.Skipped++
			continue
		}
		switch e.Model {
		case "academy.question":
			target := def.ID
			if e.Fields.Module != nil {
				if m, err := im.store.GetModule(ctx, *e.Fields.Module); err == nil {
					target = m.ID
				} else if !errors.Is(err, academy.ErrNotFound) {
					return res, err
				}
			}
			byPK[pkKey(e.PK)] = len(pending)
			pending = append(pending, academy.Question{
				ModuleID:    target,
				Text:        e.Fields.Text,
				Order:       orderOr1(e.Fields.Order),
				Explanation: e.Fields.Explanation,
				Choices:     []academy.Choice{},
			})
		case "academy.choice":
			// only questions seen earlier in the file can own choices
			i, ok := byPK[pkKey(e.Fields.Question)]
			if !ok {
				res.Skipped++
				continue
			}
			pending[i].Choices = append(pending[i].Choices, academy.Choice{Text: e.Fields.Text, IsCorrect: e.Fields.IsCorrect})
		}
	}

	for _, q := range pending {
		saved, err := im.store.PutQuestion(ctx, q)
		if err != nil {
			return res, err
		}
		res.Questions++
		res.Choices += len(saved.Choices)
	}
	return res, nil
}

func (im *Importer) importClean(ctx context.Context, def academy.Module, entries []json.RawMessage) (Result, error) {
	var res Result
	for _, raw := range entries {
		var e cleanEntry
		if err := json.Unmarshal(raw, &e); err != nil || e.Text == nil || e.Choices == nil {
			res.Skipped++
			continue
		}
		target := def.ID
		if e.ModuleSlug != "" {
			if m, err := im.store.GetModuleBySlug(ctx, def.CourseID, e.ModuleSlug); err == nil {
				target = m.ID
			} else if !errors.Is(err, academy.ErrNotFound) {
				return res, err
			}
		}
		q := academy.Question{
			ModuleID:    target,
			Text:        *e.Text,
			Order:       orderOr1(e.Order),
			Explanation: e.Explanation,
			Choices:     make([]academy.Choice, 0, len(e.Choices)),
		}
		for _, c := range e.Choices {
			q.Choices = append(q.Choices, academy.Choice{Text: c.Text, IsCorrect: c.IsCorrect})
		}
		saved, err := im.store.PutQuestion(ctx, q)
		if err != nil {
			return res, err
		}
		res.Questions++
		res.Choices += len(saved.Choices)
	}
	return res, nil
}

func orderOr1(o *int) int {
	if o == nil {
		return 1
	}
	return *o
}

// pkKey normalizes a fixture pk so 1 and "1" match.
func pkKey(raw json.RawMessage) string {
	return string(bytes.Trim(bytes.TrimSpace(raw), `"`))
}
