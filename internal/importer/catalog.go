package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-academy/internal/academy"
)

// Catalog is the seed format for courses, their modules and lessons:
//
//	{"courses":[{"title":...,"slug":...,"modules":[{"title":...,"slug":...,"lessons":[{"title":...}]}]}]}
type Catalog struct {
	Courses []CatalogCourse `json:"courses"`
}

type CatalogCourse struct {
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Order       int             `json:"order"`
	IsActive    *bool           `json:"is_active"`
	Modules     []CatalogModule `json:"modules"`
}

type CatalogModule struct {
	Title             string           `json:"title"`
	Slug              string           `json:"slug"`
	Description       string           `json:"description"`
	Order             int              `json:"order"`
	MinScoreToPass    *int             `json:"min_score_to_pass"`
	IsMandatory       *bool            `json:"is_mandatory"`
	IsFinalAssessment bool             `json:"is_final_assessment"`
	Lessons           []academy.Lesson `json:"lessons"`
}

// CatalogResult counts rows written by LoadCatalog, created or updated.
type CatalogResult struct {
	Courses int `json:"courses"`
	Modules int `json:"modules"`
	Lessons int `json:"lessons"`
}

// LoadCatalog upserts courses by slug, modules by (course, slug) and lessons by
// (module, title). Loading the same file twice leaves the catalog unchanged.
func (im *Importer) LoadCatalog(ctx context.Context, raw []byte) (CatalogResult, error) {
	var cat Catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		return CatalogResult{}, academy.Invalid("catalog is not valid JSON: %v", err)
	}
	var res CatalogResult
	for _, cc := range cat.Courses {
		if cc.Slug == "" || cc.Title == "" {
			return res, academy.Invalid("course needs a title and slug")
		}
		course := academy.Course{
			Title:       cc.Title,
			Slug:        cc.Slug,
			Description: cc.Description,
			Order:       cc.Order,
			IsActive:    cc.IsActive == nil || *cc.IsActive,
		}
		existing, err := im.store.GetCourseBySlug(ctx, cc.Slug)
		switch {
		case err == nil:
			course.ID = existing.ID
		case !errors.Is(err, academy.ErrNotFound):
			return res, err
		}
		if course, err = im.store.PutCourse(ctx, course); err != nil {
			return res, fmt.Errorf("course %s: %w", cc.Slug, err)
		}
		res.Courses++

		for _, cm := range cc.Modules {
			n, err := im.loadModule(ctx, course, cm)
			if err != nil {
				return res, fmt.Errorf("course %s: %w", cc.Slug, err)
			}
			res.Modules++
			res.Lessons += n
		}
	}
	return res, nil
}

func (im *Importer) loadModule(ctx context.Context, course academy.Course, cm CatalogModule) (int, error) {
	if cm.Slug == "" || cm.Title == "" {
		return 0, academy.Invalid("module needs a title and slug")
	}
	mod := academy.Module{
		CourseID:          course.ID,
		Title:             cm.Title,
		Slug:              cm.Slug,
		Description:       cm.Description,
		Order:             cm.Order,
		MinScoreToPass:    academy.DefaultMinScoreToPass,
		IsMandatory:       cm.IsMandatory == nil || *cm.IsMandatory,
		IsFinalAssessment: cm.IsFinalAssessment,
	}
	if cm.MinScoreToPass != nil {
		mod.MinScoreToPass = *cm.MinScoreToPass
	}
	if mod.MinScoreToPass < 0 || mod.MinScoreToPass > 100 {
		return 0, academy.Invalid("module %s: min_score_to_pass must be 0..100", cm.Slug)
	}
	existing, err := im.store.GetModuleBySlug(ctx, course.ID, cm.Slug)
	switch {
	case err == nil:
		mod.ID = existing.ID
	case !errors.Is(err, academy.ErrNotFound):
		return 0, err
	}
	if mod, err = im.store.PutModule(ctx, mod); err != nil {
		return 0, fmt.Errorf("module %s: %w", cm.Slug, err)
	}

	current, err := im.store.ListLessons(ctx, mod.ID)
	if err != nil {
		return 0, err
	}
	byTitle := make(map[string]int64, len(current))
	for _, l := range current {
		byTitle[l.Title] = l.ID
	}
	for i, l := range cm.Lessons {
		if l.Title == "" {
			return 0, academy.Invalid("module %s: lesson %d has no title", cm.Slug, i+1)
		}
		l.ID = byTitle[l.Title]
		l.ModuleID = mod.ID
		if l.Order == 0 {
			l.Order = i + 1
		}
		if _, err := im.store.PutLesson(ctx, l); err != nil {
			return 0, fmt.Errorf("lesson %q: %w", l.Title, err)
		}
	}
	return len(cm.Lessons), nil
}
