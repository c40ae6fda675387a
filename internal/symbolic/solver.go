package symbolic

import (
	"context"
	"errors"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

var (
	// ErrUnsupported is returned for expressions the solver cannot encode.
	ErrUnsupported = errors.New("unsupported expression")
	// ErrUnknown is returned when the solver gives up (time limit, incompleteness).
	ErrUnknown = errors.New("solver returned unknown")
)

// Solver decides validity of obligations. A Solver is not safe for
// concurrent use; create one per goroutine.
type Solver interface {
	// Valid reports whether goal holds in every model of hyps.
	Valid(ctx context.Context, vars map[string]bpl.Type, hyps []bpl.Expr, goal bpl.Expr) (bool, error)
	Close()
}

// SolverFactory creates a fresh solver.
type SolverFactory func() (Solver, error)

// Discharge checks one obligation with s.
func Discharge(ctx context.Context, s Solver, ob Obligation) (bool, error) {
	return s.Valid(ctx, ob.Vars, ob.Hyps, ob.Goal)
}
