package symbolic

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gnoswap-labs/bplmatch/internal/analysis/cfg"
	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

// ErrPathLimit is returned when a procedure has more paths than allowed.
var ErrPathLimit = errors.New("path limit exceeded")

// Obligation is one assertion on one path: Goal must follow from Hyps.
// Vars gives the type of every free identifier of Hyps and Goal.
type Obligation struct {
	Pos   bpl.Pos
	Block string
	Vars  map[string]bpl.Type
	Hyps  []bpl.Expr
	Goal  bpl.Expr
}

// state is the symbolic store of one path.
type state struct {
	env  map[string]bpl.Expr
	hyps []bpl.Expr
}

func (s *state) clone() *state {
	env := make(map[string]bpl.Expr, len(s.env))
	for k, v := range s.env {
		env[k] = v
	}
	hyps := make([]bpl.Expr, len(s.hyps))
	copy(hyps, s.hyps)
	return &state{env: env, hyps: hyps}
}

type executor struct {
	prog     *bpl.Program
	proc     *bpl.Procedure
	scope    *bpl.Scope
	fresh    map[string]bpl.Type
	counter  int
	paths    int
	maxPaths int
	out      []Obligation
}

// Execute walks every path of proc from its entry and returns one
// obligation per assertion per path. The body must be acyclic. A
// maxPaths of zero means no limit.
func Execute(prog *bpl.Program, proc *bpl.Procedure, maxPaths int) ([]Obligation, error) {
	if !proc.HasBody {
		return nil, fmt.Errorf("procedure %s has no body", proc.Name)
	}
	if _, err := cfg.FromProcedure(proc).TopoOrder(); err != nil {
		return nil, fmt.Errorf("procedure %s: %w", proc.Name, err)
	}

	ex := &executor{
		prog:     prog,
		proc:     proc,
		scope:    prog.Scope(proc),
		fresh:    make(map[string]bpl.Type),
		maxPaths: maxPaths,
	}
	st := &state{env: make(map[string]bpl.Expr)}
	st.hyps = append(st.hyps, proc.Requires...)
	if err := ex.block(proc.Entry(), st); err != nil {
		return nil, err
	}
	return ex.out, nil
}

func (ex *executor) block(b *bpl.Block, st *state) error {
	for _, c := range b.Cmds {
		ex.cmd(b.Label, c, st)
	}

	labels := b.Successors()
	if len(labels) == 0 {
		ex.paths++
		if ex.maxPaths > 0 && ex.paths > ex.maxPaths {
			return fmt.Errorf("%w: more than %d paths in %s", ErrPathLimit, ex.maxPaths, ex.proc.Name)
		}
		return nil
	}
	for i, l := range labels {
		next := st
		if i < len(labels)-1 {
			next = st.clone()
		}
		if err := ex.block(ex.proc.Block(l), next); err != nil {
			return err
		}
	}
	return nil
}

func (ex *executor) cmd(label string, c bpl.Cmd, st *state) {
	switch c := c.(type) {
	case bpl.AssignCmd:
		vals := make([]bpl.Expr, len(c.Rhs))
		for i, e := range c.Rhs {
			vals[i] = ex.subst(e, st)
		}
		for i, lhs := range c.Lhs {
			if len(lhs.Index) == 0 {
				st.env[lhs.Name] = vals[i]
				continue
			}
			idx := make([]bpl.Expr, len(lhs.Index))
			for j, e := range lhs.Index {
				idx[j] = ex.subst(e, st)
			}
			st.env[lhs.Name] = bpl.StoreExpr{Map: ex.subst(bpl.Id(lhs.Name), st), Index: idx, Value: vals[i]}
		}
	case bpl.HavocCmd:
		for _, v := range c.Vars {
			ex.havoc(v, st)
		}
	case bpl.AssumeCmd:
		st.hyps = append(st.hyps, ex.subst(c.Expr, st))
	case bpl.AssertCmd:
		goal := ex.subst(c.Expr, st)
		hyps := make([]bpl.Expr, len(st.hyps))
		copy(hyps, st.hyps)
		ex.out = append(ex.out, Obligation{
			Pos:   c.Pos,
			Block: label,
			Vars:  ex.freeVars(hyps, goal),
			Hyps:  hyps,
			Goal:  goal,
		})
		// later commands may rely on the asserted fact
		st.hyps = append(st.hyps, goal)
	case bpl.CallCmd:
		for _, o := range c.Outs {
			ex.havoc(o, st)
		}
		if callee := ex.prog.Procedure(c.Callee); callee != nil {
			for _, m := range callee.Modifies {
				ex.havoc(m, st)
			}
		}
	}
}

func (ex *executor) havoc(name string, st *state) {
	ex.counter++
	fresh := name + "#" + strconv.Itoa(ex.counter)
	ex.fresh[fresh] = ex.typeOf(name)
	st.env[name] = bpl.Id(fresh)
}

func (ex *executor) typeOf(name string) bpl.Type {
	if t, ok := ex.fresh[name]; ok {
		return t
	}
	t, _ := ex.scope.Lookup(name)
	return t
}

// subst replaces every variable of e by its current symbolic value.
func (ex *executor) subst(e bpl.Expr, st *state) bpl.Expr {
	switch e := e.(type) {
	case bpl.Ident:
		if v, ok := st.env[e.Name]; ok {
			return v
		}
		return e
	case bpl.UnaryExpr:
		return bpl.UnaryExpr{Op: e.Op, X: ex.subst(e.X, st)}
	case bpl.BinaryExpr:
		return bpl.BinaryExpr{Op: e.Op, Left: ex.subst(e.Left, st), Right: ex.subst(e.Right, st)}
	case bpl.SelectExpr:
		return bpl.SelectExpr{Map: ex.subst(e.Map, st), Index: ex.substAll(e.Index, st)}
	case bpl.StoreExpr:
		return bpl.StoreExpr{Map: ex.subst(e.Map, st), Index: ex.substAll(e.Index, st), Value: ex.subst(e.Value, st)}
	case bpl.CallExpr:
		return bpl.CallExpr{Func: e.Func, Args: ex.substAll(e.Args, st)}
	case bpl.IfThenElse:
		return bpl.IfThenElse{Cond: ex.subst(e.Cond, st), Then: ex.subst(e.Then, st), Else: ex.subst(e.Else, st)}
	default:
		return e
	}
}

func (ex *executor) substAll(es []bpl.Expr, st *state) []bpl.Expr {
	out := make([]bpl.Expr, len(es))
	for i, e := range es {
		out[i] = ex.subst(e, st)
	}
	return out
}

func (ex *executor) freeVars(hyps []bpl.Expr, goal bpl.Expr) map[string]bpl.Type {
	vars := make(map[string]bpl.Type)
	collect := func(e bpl.Expr) bool {
		if id, ok := e.(bpl.Ident); ok {
			if _, seen := vars[id.Name]; !seen {
				vars[id.Name] = ex.typeOf(id.Name)
			}
		}
		return true
	}
	for _, h := range hyps {
		bpl.Inspect(h, collect)
	}
	bpl.Inspect(goal, collect)
	return vars
}
