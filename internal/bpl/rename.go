package bpl

import "strings"

// Renamer moves identifiers into a namespace by prefixing them.
//
// Variables, constants, labels, procedure names and call targets are
// renamed; function names and type names are shared and left untouched.
// Names that already carry the prefix are kept as they are. Renaming never
// mutates its input: every method returns a rebuilt tree.
type Renamer struct {
	prefix string
	ignore []string
	cache  map[string]string
}

// NewRenamer creates a renamer for prefix. Callees starting with any of the
// ignore prefixes are not renamed.
func NewRenamer(prefix string, ignore ...string) *Renamer {
	return &Renamer{
		prefix: prefix,
		ignore: ignore,
		cache:  make(map[string]string),
	}
}

// Prefix returns the namespace prefix.
func (r *Renamer) Prefix() string {
	return r.prefix
}

// Name returns the namespaced form of name.
func (r *Renamer) Name(name string) string {
	if renamed, ok := r.cache[name]; ok {
		return renamed
	}
	renamed := name
	if !strings.HasPrefix(name, r.prefix) {
		renamed = r.prefix + name
	}
	r.cache[name] = renamed
	return renamed
}

func (r *Renamer) names(ns []string) []string {
	if ns == nil {
		return nil
	}
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = r.Name(n)
	}
	return out
}

func (r *Renamer) exprs(es []Expr) []Expr {
	if es == nil {
		return nil
	}
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = r.Expr(e)
	}
	return out
}

func (r *Renamer) vars(vs []Variable) []Variable {
	if vs == nil {
		return nil
	}
	out := make([]Variable, len(vs))
	for i, v := range vs {
		out[i] = Variable{Name: r.Name(v.Name), Type: v.Type}
	}
	return out
}

// Expr renames every identifier in e.
func (r *Renamer) Expr(e Expr) Expr {
	switch e := e.(type) {
	case Ident:
		return Ident{Name: r.Name(e.Name)}
	case UnaryExpr:
		return UnaryExpr{Op: e.Op, X: r.Expr(e.X)}
	case BinaryExpr:
		return BinaryExpr{Op: e.Op, Left: r.Expr(e.Left), Right: r.Expr(e.Right)}
	case SelectExpr:
		return SelectExpr{Map: r.Expr(e.Map), Index: r.exprs(e.Index)}
	case StoreExpr:
		return StoreExpr{Map: r.Expr(e.Map), Index: r.exprs(e.Index), Value: r.Expr(e.Value)}
	case CallExpr:
		return CallExpr{Func: e.Func, Args: r.exprs(e.Args)}
	case IfThenElse:
		return IfThenElse{Cond: r.Expr(e.Cond), Then: r.Expr(e.Then), Else: r.Expr(e.Else)}
	default:
		return e
	}
}

// Cmd renames every identifier in c.
func (r *Renamer) Cmd(c Cmd) Cmd {
	switch c := c.(type) {
	case AssignCmd:
		lhs := make([]AssignLhs, len(c.Lhs))
		for i, l := range c.Lhs {
			lhs[i] = AssignLhs{Name: r.Name(l.Name), Index: r.exprs(l.Index)}
		}
		return AssignCmd{Pos: c.Pos, Lhs: lhs, Rhs: r.exprs(c.Rhs)}
	case HavocCmd:
		return HavocCmd{Pos: c.Pos, Vars: r.names(c.Vars)}
	case AssertCmd:
		return AssertCmd{Pos: c.Pos, Expr: r.Expr(c.Expr)}
	case AssumeCmd:
		return AssumeCmd{Pos: c.Pos, Expr: r.Expr(c.Expr)}
	case CallCmd:
		return CallCmd{Pos: c.Pos, Callee: r.Callee(c.Callee), Args: r.exprs(c.Args), Outs: r.names(c.Outs)}
	default:
		return c
	}
}

// Callee renames a procedure name unless it matches an ignore prefix.
func (r *Renamer) Callee(name string) string {
	for _, p := range r.ignore {
		if strings.HasPrefix(name, p) {
			return name
		}
	}
	return r.Name(name)
}

// Transfer renames the goto targets of t.
func (r *Renamer) Transfer(t Transfer) Transfer {
	if g, ok := t.(GotoCmd); ok {
		return GotoCmd{Pos: g.Pos, Labels: r.names(g.Labels)}
	}
	return t
}

// Procedure returns a renamed copy of proc, including its body.
func (r *Renamer) Procedure(proc *Procedure) *Procedure {
	out := &Procedure{
		Pos:       proc.Pos,
		Attrs:     proc.Attrs,
		Name:      r.Callee(proc.Name),
		InParams:  r.vars(proc.InParams),
		OutParams: r.vars(proc.OutParams),
		Requires:  r.exprs(proc.Requires),
		Ensures:   r.exprs(proc.Ensures),
		Modifies:  r.names(proc.Modifies),
		HasBody:   proc.HasBody,
		Locals:    r.vars(proc.Locals),
	}
	for _, b := range proc.Blocks {
		nb := &Block{
			Label:    r.Name(b.Label),
			Pos:      b.Pos,
			Cmds:     make([]Cmd, len(b.Cmds)),
			Transfer: r.Transfer(b.Transfer),
		}
		for i, c := range b.Cmds {
			nb.Cmds[i] = r.Cmd(c)
		}
		out.Blocks = append(out.Blocks, nb)
	}
	return out
}
