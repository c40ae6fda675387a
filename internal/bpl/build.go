package bpl

// Helper constructors for building programs programmatically.

func Id(name string) Expr {
	return Ident{Name: name}
}

func Eq(a, b Expr) Expr {
	return BinaryExpr{Op: OpEq, Left: a, Right: b}
}

func Or(a, b Expr) Expr {
	return BinaryExpr{Op: OpOr, Left: a, Right: b}
}

func And(a, b Expr) Expr {
	return BinaryExpr{Op: OpAnd, Left: a, Right: b}
}

func Not(a Expr) Expr {
	return UnaryExpr{Op: OpNot, X: a}
}

func False() Expr {
	return BoolLit{Val: false}
}

func True() Expr {
	return BoolLit{Val: true}
}

// Assign builds the single assignment name := e.
func Assign(name string, e Expr) Cmd {
	return AssignCmd{Lhs: []AssignLhs{{Name: name}}, Rhs: []Expr{e}}
}

func Havoc(names ...string) Cmd {
	return HavocCmd{Vars: names}
}

func Assert(e Expr) Cmd {
	return AssertCmd{Expr: e}
}

func Assume(e Expr) Cmd {
	return AssumeCmd{Expr: e}
}

func Goto(labels ...string) Transfer {
	return GotoCmd{Labels: labels}
}

func Return() Transfer {
	return ReturnCmd{}
}
