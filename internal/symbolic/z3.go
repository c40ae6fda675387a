//go:build z3

package symbolic

import (
	"context"
	"fmt"
	"strconv"
	"time"

	z3 "github.com/mitchellh/go-z3"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

// Z3Solver decides validity with Z3 over booleans and unbounded integers.
type Z3Solver struct {
	ctx *z3.Context
}

// NewZ3Solver creates a solver with a per-check timeout (0 for none).
func NewZ3Solver(timeout time.Duration) (Solver, error) {
	config := z3.NewConfig()
	if timeout > 0 {
		config.SetParamValue("timeout", strconv.FormatInt(timeout.Milliseconds(), 10))
	}
	ctx := z3.NewContext(config)
	config.Close()

	return &Z3Solver{ctx: ctx}, nil
}

func (s *Z3Solver) Close() {
	if s.ctx != nil {
		s.ctx.Close()
		s.ctx = nil
	}
}

// Valid asserts the hypotheses and the negated goal; unsat means valid.
func (s *Z3Solver) Valid(ctx context.Context, vars map[string]bpl.Type, hyps []bpl.Expr, goal bpl.Expr) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	enc := &encoder{ctx: s.ctx, vars: vars, consts: make(map[string]*z3.AST)}

	solver := s.ctx.NewSolver()
	defer solver.Close()

	for _, h := range hyps {
		a, err := enc.expr(h)
		if err != nil {
			return false, err
		}
		solver.Assert(a)
	}
	g, err := enc.expr(goal)
	if err != nil {
		return false, err
	}
	solver.Assert(g.Not())

	switch solver.Check() {
	case z3.False:
		return true, nil
	case z3.True:
		return false, nil
	default:
		return false, ErrUnknown
	}
}

type encoder struct {
	ctx    *z3.Context
	vars   map[string]bpl.Type
	consts map[string]*z3.AST
}

func (e *encoder) sort(t bpl.Type) (*z3.Sort, error) {
	switch {
	case bpl.TypeEqual(t, bpl.Bool):
		return e.ctx.BoolSort(), nil
	case bpl.TypeEqual(t, bpl.Int):
		return e.ctx.IntSort(), nil
	default:
		return nil, fmt.Errorf("%w: type %v", ErrUnsupported, t)
	}
}

func (e *encoder) ident(name string) (*z3.AST, error) {
	if c, ok := e.consts[name]; ok {
		return c, nil
	}
	sort, err := e.sort(e.vars[name])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	c := e.ctx.Const(e.ctx.Symbol(name), sort)
	e.consts[name] = c
	return c, nil
}

func (e *encoder) expr(x bpl.Expr) (*z3.AST, error) {
	switch x := x.(type) {
	case bpl.Ident:
		return e.ident(x.Name)
	case bpl.BoolLit:
		if x.Val {
			return e.ctx.True(), nil
		}
		return e.ctx.False(), nil
	case bpl.IntLit:
		v, err := strconv.Atoi(x.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: literal %s", ErrUnsupported, x.Value)
		}
		return e.ctx.Int(v, e.ctx.IntSort()), nil
	case bpl.UnaryExpr:
		a, err := e.expr(x.X)
		if err != nil {
			return nil, err
		}
		if x.Op == bpl.OpNot {
			return a.Not(), nil
		}
		return e.ctx.Int(0, e.ctx.IntSort()).Sub(a), nil
	case bpl.BinaryExpr:
		return e.binary(x)
	case bpl.IfThenElse:
		c, err := e.expr(x.Cond)
		if err != nil {
			return nil, err
		}
		t, err := e.expr(x.Then)
		if err != nil {
			return nil, err
		}
		f, err := e.expr(x.Else)
		if err != nil {
			return nil, err
		}
		return c.Ite(t, f), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, x)
	}
}

func (e *encoder) binary(x bpl.BinaryExpr) (*z3.AST, error) {
	l, err := e.expr(x.Left)
	if err != nil {
		return nil, err
	}
	r, err := e.expr(x.Right)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case bpl.OpIff:
		return l.Iff(r), nil
	case bpl.OpImplies:
		return l.Implies(r), nil
	case bpl.OpOr:
		return l.Or(r), nil
	case bpl.OpAnd:
		return l.And(r), nil
	case bpl.OpEq:
		return l.Eq(r), nil
	case bpl.OpNeq:
		return l.Eq(r).Not(), nil
	case bpl.OpLt:
		return l.Lt(r), nil
	case bpl.OpLte:
		return l.Le(r), nil
	case bpl.OpGt:
		return l.Gt(r), nil
	case bpl.OpGte:
		return l.Ge(r), nil
	case bpl.OpAdd:
		return l.Add(r), nil
	case bpl.OpSub:
		return l.Sub(r), nil
	case bpl.OpMul:
		return l.Mul(r), nil
	default:
		return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, x.Op)
	}
}
