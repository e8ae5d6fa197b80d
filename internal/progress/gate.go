package progress

import (
	"context"
	"errors"

	"github.com/mind-engage/mindengage-academy/internal/academy"
)

// Gate decides module access from prerequisite completion. Nothing is cached; the
// answer is recomputed from stored progress on every call.
type Gate struct {
	store academy.Store
}

func NewGate(store academy.Store) *Gate {
	return &Gate{store: store}
}

// Prerequisites returns the mandatory modules of the same course whose order is
// strictly smaller than mod's, in (order, id) order.
func (g *Gate) Prerequisites(ctx context.Context, mod academy.Module) ([]academy.Module, error) {
	mods, err := g.store.ListModules(ctx, mod.CourseID)
	if err != nil {
		return nil, err
	}
	out := []academy.Module{}
	for _, m := range mods {
		if m.ID != mod.ID && m.IsMandatory && m.Order < mod.Order {
			out = append(out, m)
		}
	}
	return out, nil
}

// CanAccessModule is true iff the user has a passing progress row on every
// prerequisite. A missing row counts as not passed.
func (g *Gate) CanAccessModule(ctx context.Context, userID string, mod academy.Module) (bool, error) {
	blocking, err := g.Blocking(ctx, userID, mod)
	if err != nil {
		return false, err
	}
	return len(blocking) == 0, nil
}

// Blocking lists the prerequisites the user has not passed yet.
func (g *Gate) Blocking(ctx context.Context, userID string, mod academy.Module) ([]academy.Module, error) {
	prereqs, err := g.Prerequisites(ctx, mod)
	if err != nil {
		return nil, err
	}
	out := []academy.Module{}
	for _, m := range prereqs {
		p, err := g.store.GetModuleProgress(ctx, userID, m.ID)
		if errors.Is(err, academy.ErrNotFound) {
			out = append(out, m)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !p.Passed(m.MinScoreToPass) {
			out = append(out, m)
		}
	}
	return out, nil
}
