package bpl

import (
	"errors"
	"fmt"
	"sort"
)

// Scope maps variable and constant names to their types.
type Scope struct {
	vars   map[string]Type
	parent *Scope
}

// NewScope creates an empty scope nested in parent (which may be nil).
func NewScope(parent *Scope) *Scope {
	return &Scope{vars: make(map[string]Type), parent: parent}
}

// Declare adds a name to the scope. It reports false if the name is
// already declared in this (innermost) scope.
func (s *Scope) Declare(name string, typ Type) bool {
	if _, exists := s.vars[name]; exists {
		return false
	}
	s.vars[name] = typ
	return true
}

// Lookup finds the type of name, searching enclosing scopes.
func (s *Scope) Lookup(name string) (Type, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// GlobalScope returns the scope of constants and global variables.
func (p *Program) GlobalScope() *Scope {
	scope := NewScope(nil)
	for _, c := range p.Constants() {
		scope.Declare(c.Var.Name, c.Var.Type)
	}
	for _, g := range p.Globals() {
		scope.Declare(g.Var.Name, g.Var.Type)
	}
	return scope
}

// Scope returns the scope visible in the body of proc.
func (p *Program) Scope(proc *Procedure) *Scope {
	scope := NewScope(p.GlobalScope())
	for _, vs := range [][]Variable{proc.InParams, proc.OutParams, proc.Locals} {
		for _, v := range vs {
			scope.Declare(v.Name, v.Type)
		}
	}
	return scope
}

type resolver struct {
	prog   *Program
	funcs  map[string]*FunctionDecl
	procs  map[string]*Procedure
	types  map[string]bool
	errs   []error
	global *Scope
}

// Resolve checks that every name used in the program is declared, that
// labels exist and that declarations are unique. All problems are
// reported, joined into a single error.
func Resolve(prog *Program) error {
	r := &resolver{
		prog:  prog,
		funcs: make(map[string]*FunctionDecl),
		procs: make(map[string]*Procedure),
		types: make(map[string]bool),
	}
	r.collect()
	r.global = prog.GlobalScope()

	for _, d := range prog.Decls {
		switch d := d.(type) {
		case *ConstDecl:
			r.checkType(d.Pos, d.Var.Type)
		case *GlobalDecl:
			r.checkType(d.Pos, d.Var.Type)
		case *FunctionDecl:
			r.resolveFunction(d)
		case *Procedure:
			r.resolveProcedure(d)
		}
	}
	return errors.Join(r.errs...)
}

func (r *resolver) errorf(pos Pos, format string, args ...any) {
	r.errs = append(r.errs, &Error{Filename: r.prog.Filename, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (r *resolver) collect() {
	seen := make(map[string]bool)
	for _, d := range r.prog.Decls {
		name := d.DeclName()
		switch d := d.(type) {
		case *TypeDecl:
			if r.types[name] {
				r.errorf(d.Pos, "duplicate type %q", name)
			}
			r.types[name] = true
			continue
		case *FunctionDecl:
			if r.funcs[name] != nil {
				r.errorf(d.Pos, "duplicate function %q", name)
			}
			r.funcs[name] = d
			continue
		case *Procedure:
			if r.procs[name] != nil {
				r.errorf(d.Pos, "duplicate procedure %q", name)
			}
			r.procs[name] = d
			continue
		case *ConstDecl:
			if seen[name] {
				r.errorf(d.Pos, "duplicate declaration of %q", name)
			}
		case *GlobalDecl:
			if seen[name] {
				r.errorf(d.Pos, "duplicate declaration of %q", name)
			}
		}
		seen[name] = true
	}
}

func (r *resolver) checkType(pos Pos, t Type) {
	switch t := t.(type) {
	case NamedType:
		if !r.types[t.Name] {
			r.errorf(pos, "undeclared type %q", t.Name)
		}
	case MapType:
		for _, k := range t.Keys {
			r.checkType(pos, k)
		}
		r.checkType(pos, t.Value)
	}
}

func (r *resolver) resolveFunction(fn *FunctionDecl) {
	scope := NewScope(r.global)
	for _, v := range fn.Params {
		r.checkType(fn.Pos, v.Type)
		if v.Name != "" {
			scope.Declare(v.Name, v.Type)
		}
	}
	r.checkType(fn.Pos, fn.Result.Type)
	if fn.Body != nil {
		r.resolveExpr(fn.Pos, fn.Body, scope)
	}
}

func (r *resolver) resolveProcedure(proc *Procedure) {
	scope := NewScope(r.global)
	for _, vs := range [][]Variable{proc.InParams, proc.OutParams, proc.Locals} {
		for _, v := range vs {
			r.checkType(proc.Pos, v.Type)
			if !scope.Declare(v.Name, v.Type) {
				r.errorf(proc.Pos, "duplicate variable %q in %q", v.Name, proc.Name)
			}
		}
	}
	for _, e := range proc.Requires {
		r.resolveExpr(proc.Pos, e, scope)
	}
	for _, e := range proc.Ensures {
		r.resolveExpr(proc.Pos, e, scope)
	}
	for _, m := range proc.Modifies {
		if _, ok := r.global.Lookup(m); !ok {
			r.errorf(proc.Pos, "modifies clause names undeclared global %q", m)
		}
	}
	if !proc.HasBody {
		return
	}

	labels := make(map[string]bool)
	for _, b := range proc.Blocks {
		if labels[b.Label] {
			r.errorf(b.Pos, "duplicate label %q", b.Label)
		}
		labels[b.Label] = true
	}
	for _, b := range proc.Blocks {
		for _, c := range b.Cmds {
			r.resolveCmd(c, scope)
		}
		for _, l := range b.Successors() {
			if !labels[l] {
				r.errorf(b.Transfer.Position(), "goto to undeclared label %q", l)
			}
		}
	}
}

func (r *resolver) resolveCmd(c Cmd, scope *Scope) {
	switch c := c.(type) {
	case AssignCmd:
		for _, l := range c.Lhs {
			r.resolveName(c.Pos, l.Name, scope)
			for _, i := range l.Index {
				r.resolveExpr(c.Pos, i, scope)
			}
		}
		for _, e := range c.Rhs {
			r.resolveExpr(c.Pos, e, scope)
		}
	case HavocCmd:
		for _, v := range c.Vars {
			r.resolveName(c.Pos, v, scope)
		}
	case AssertCmd:
		r.resolveExpr(c.Pos, c.Expr, scope)
	case AssumeCmd:
		r.resolveExpr(c.Pos, c.Expr, scope)
	case CallCmd:
		callee := r.procs[c.Callee]
		if callee == nil {
			r.errorf(c.Pos, "call to undeclared procedure %q", c.Callee)
		} else if len(callee.InParams) != len(c.Args) || len(callee.OutParams) != len(c.Outs) {
			r.errorf(c.Pos, "call to %q has wrong arity", c.Callee)
		}
		for _, a := range c.Args {
			r.resolveExpr(c.Pos, a, scope)
		}
		for _, o := range c.Outs {
			r.resolveName(c.Pos, o, scope)
		}
	}
}

func (r *resolver) resolveName(pos Pos, name string, scope *Scope) {
	if _, ok := scope.Lookup(name); !ok {
		r.errorf(pos, "undeclared identifier %q", name)
	}
}

func (r *resolver) resolveExpr(pos Pos, e Expr, scope *Scope) {
	Inspect(e, func(e Expr) bool {
		switch e := e.(type) {
		case Ident:
			r.resolveName(pos, e.Name, scope)
		case CallExpr:
			fn := r.funcs[e.Func]
			if fn == nil {
				r.errorf(pos, "call to undeclared function %q", e.Func)
			} else if len(fn.Params) != len(e.Args) {
				r.errorf(pos, "call to %q has wrong arity", e.Func)
			}
		}
		return true
	})
}

// Inspect traverses e in depth-first order, calling f for each node.
// Children are skipped when f returns false.
func Inspect(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	switch e := e.(type) {
	case UnaryExpr:
		Inspect(e.X, f)
	case BinaryExpr:
		Inspect(e.Left, f)
		Inspect(e.Right, f)
	case SelectExpr:
		Inspect(e.Map, f)
		for _, i := range e.Index {
			Inspect(i, f)
		}
	case StoreExpr:
		Inspect(e.Map, f)
		for _, i := range e.Index {
			Inspect(i, f)
		}
		Inspect(e.Value, f)
	case CallExpr:
		for _, a := range e.Args {
			Inspect(a, f)
		}
	case IfThenElse:
		Inspect(e.Cond, f)
		Inspect(e.Then, f)
		Inspect(e.Else, f)
	}
}

// TypeOf computes the type of e in scope. Function results are looked up
// in prog. It returns nil when the type cannot be determined.
func TypeOf(prog *Program, scope *Scope, e Expr) Type {
	switch e := e.(type) {
	case Ident:
		t, _ := scope.Lookup(e.Name)
		return t
	case IntLit:
		return Int
	case BvLit:
		return Bv(e.Width)
	case BoolLit:
		return Bool
	case UnaryExpr:
		if e.Op == OpNot {
			return Bool
		}
		return TypeOf(prog, scope, e.X)
	case BinaryExpr:
		if e.Op.IsLogical() || e.Op.IsRelational() {
			return Bool
		}
		return TypeOf(prog, scope, e.Left)
	case SelectExpr:
		if m, ok := TypeOf(prog, scope, e.Map).(MapType); ok {
			return m.Value
		}
		return nil
	case StoreExpr:
		return TypeOf(prog, scope, e.Map)
	case CallExpr:
		for _, fn := range prog.Functions() {
			if fn.Name == e.Func {
				return fn.Result.Type
			}
		}
		return nil
	case IfThenElse:
		return TypeOf(prog, scope, e.Then)
	default:
		return nil
	}
}

// InferModifies recomputes the modifies clause of every implementation as
// the globals it assigns, havocs or passes to callees that modify them,
// iterating to a fixed point over the call graph. Clauses of body-less
// procedures are kept as declared.
func InferModifies(prog *Program) {
	globals := make(map[string]bool)
	for _, g := range prog.Globals() {
		globals[g.Var.Name] = true
	}

	mods := make(map[string]map[string]bool)
	for _, proc := range prog.Procedures() {
		set := make(map[string]bool)
		for _, m := range proc.Modifies {
			set[m] = true
		}
		mods[proc.Name] = set
	}

	changed := true
	for changed {
		changed = false
		for _, proc := range prog.Implementations() {
			local := make(map[string]bool)
			for _, vs := range [][]Variable{proc.InParams, proc.OutParams, proc.Locals} {
				for _, v := range vs {
					local[v.Name] = true
				}
			}
			add := func(name string) {
				if globals[name] && !local[name] && !mods[proc.Name][name] {
					mods[proc.Name][name] = true
					changed = true
				}
			}
			for _, b := range proc.Blocks {
				for _, c := range b.Cmds {
					switch c := c.(type) {
					case AssignCmd:
						for _, l := range c.Lhs {
							add(l.Name)
						}
					case HavocCmd:
						for _, v := range c.Vars {
							add(v)
						}
					case CallCmd:
						for _, o := range c.Outs {
							add(o)
						}
						for m := range mods[c.Callee] {
							add(m)
						}
					}
				}
			}
		}
	}

	for _, proc := range prog.Implementations() {
		names := make([]string, 0, len(mods[proc.Name]))
		for m := range mods[proc.Name] {
			names = append(names, m)
		}
		sort.Strings(names)
		proc.Modifies = names
	}
}
