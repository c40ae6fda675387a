package bpl

import (
	"strconv"
	"strings"
)

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Col)
}

// IsValid reports whether the position was set by the parser.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

// Expr represents an expression.
type Expr interface {
	isExpr()
	String() string
}

// Ident is a reference to a variable or constant.
type Ident struct {
	Name string
}

func (Ident) isExpr() {}
func (e Ident) String() string {
	return e.Name
}

// IntLit is an unbounded integer literal kept in its decimal text form.
type IntLit struct {
	Value string
}

func (IntLit) isExpr() {}
func (e IntLit) String() string {
	return e.Value
}

// BvLit is a bitvector literal such as 5bv32.
type BvLit struct {
	Value string
	Width int
}

func (BvLit) isExpr() {}
func (e BvLit) String() string {
	return e.Value + "bv" + strconv.Itoa(e.Width)
}

// BoolLit is true or false.
type BoolLit struct {
	Val bool
}

func (BoolLit) isExpr() {}
func (e BoolLit) String() string {
	if e.Val {
		return "true"
	}
	return "false"
}

// UnaryOp represents unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpNeg:
		return "-"
	default:
		return "?"
	}
}

// UnaryExpr represents a unary expression.
type UnaryExpr struct {
	Op UnaryOp
	X  Expr
}

func (UnaryExpr) isExpr() {}
func (e UnaryExpr) String() string {
	return e.Op.String() + operand(e.X, precUnary)
}

// BinaryOp represents binary operators.
type BinaryOp int

const (
	_ BinaryOp = iota
	OpIff
	OpImplies
	OpOr
	OpAnd
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

func (op BinaryOp) String() string {
	switch op {
	case OpIff:
		return "<==>"
	case OpImplies:
		return "==>"
	case OpOr:
		return "||"
	case OpAnd:
		return "&&"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "div"
	case OpMod:
		return "mod"
	default:
		return "?"
	}
}

// IsRelational reports whether the operator yields bool from non-bool operands.
func (op BinaryOp) IsRelational() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// IsLogical reports whether the operator combines boolean operands.
func (op BinaryOp) IsLogical() bool {
	switch op {
	case OpIff, OpImplies, OpOr, OpAnd:
		return true
	}
	return false
}

const (
	precLowest = iota
	precIff
	precImplies
	precLogical
	precRel
	precAdd
	precMul
	precUnary
	precPostfix
)

func (op BinaryOp) prec() int {
	switch op {
	case OpIff:
		return precIff
	case OpImplies:
		return precImplies
	case OpOr, OpAnd:
		return precLogical
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return precRel
	case OpAdd, OpSub:
		return precAdd
	case OpMul, OpDiv, OpMod:
		return precMul
	default:
		return precLowest
	}
}

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (BinaryExpr) isExpr() {}
func (e BinaryExpr) String() string {
	p := e.Op.prec()
	return operand(e.Left, p+1) + " " + e.Op.String() + " " + operand(e.Right, p+1)
}

// SelectExpr is a map read m[i, j].
type SelectExpr struct {
	Map   Expr
	Index []Expr
}

func (SelectExpr) isExpr() {}
func (e SelectExpr) String() string {
	return operand(e.Map, precPostfix) + "[" + joinExprs(e.Index) + "]"
}

// StoreExpr is a functional map update m[i := v].
type StoreExpr struct {
	Map   Expr
	Index []Expr
	Value Expr
}

func (StoreExpr) isExpr() {}
func (e StoreExpr) String() string {
	return operand(e.Map, precPostfix) + "[" + joinExprs(e.Index) + " := " + e.Value.String() + "]"
}

// CallExpr is a function application. Functions are pure.
type CallExpr struct {
	Func string
	Args []Expr
}

func (CallExpr) isExpr() {}
func (e CallExpr) String() string {
	return e.Func + "(" + joinExprs(e.Args) + ")"
}

// IfThenElse is the conditional expression `if c then a else b`.
type IfThenElse struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (IfThenElse) isExpr() {}
func (e IfThenElse) String() string {
	return "(if " + e.Cond.String() + " then " + e.Then.String() + " else " + e.Else.String() + ")"
}

func exprPrec(e Expr) int {
	switch x := e.(type) {
	case BinaryExpr:
		return x.Op.prec()
	case UnaryExpr:
		return precUnary
	default:
		return precPostfix + 1
	}
}

// operand prints e, parenthesized when it binds looser than min.
func operand(e Expr, min int) string {
	if exprPrec(e) < min {
		return "(" + e.String() + ")"
	}
	return e.String()
}

func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// Cmd represents a simple (non-transfer) command inside a block.
type Cmd interface {
	isCmd()
	Position() Pos
	String() string
}

// AssignLhs is the target of an assignment: a variable, optionally indexed.
type AssignLhs struct {
	Name  string
	Index []Expr
}

func (l AssignLhs) String() string {
	if len(l.Index) == 0 {
		return l.Name
	}
	return l.Name + "[" + joinExprs(l.Index) + "]"
}

// AssignCmd is a (parallel) assignment: x, m[i] := e1, e2;
type AssignCmd struct {
	Pos Pos
	Lhs []AssignLhs
	Rhs []Expr
}

func (AssignCmd) isCmd() {}
func (c AssignCmd) Position() Pos { return c.Pos }
func (c AssignCmd) String() string {
	lhs := make([]string, len(c.Lhs))
	for i, l := range c.Lhs {
		lhs[i] = l.String()
	}
	return strings.Join(lhs, ", ") + " := " + joinExprs(c.Rhs) + ";"
}

// HavocCmd assigns arbitrary values to the listed variables.
type HavocCmd struct {
	Pos  Pos
	Vars []string
}

func (HavocCmd) isCmd() {}
func (c HavocCmd) Position() Pos { return c.Pos }
func (c HavocCmd) String() string {
	return "havoc " + strings.Join(c.Vars, ", ") + ";"
}

// AssertCmd is a proof obligation.
type AssertCmd struct {
	Pos  Pos
	Expr Expr
}

func (AssertCmd) isCmd() {}
func (c AssertCmd) Position() Pos { return c.Pos }
func (c AssertCmd) String() string {
	return "assert " + c.Expr.String() + ";"
}

// AssumeCmd restricts the executions considered from here on.
type AssumeCmd struct {
	Pos  Pos
	Expr Expr
}

func (AssumeCmd) isCmd() {}
func (c AssumeCmd) Position() Pos { return c.Pos }
func (c AssumeCmd) String() string {
	return "assume " + c.Expr.String() + ";"
}

// CallCmd invokes a procedure: call x, y := P(a, b);
type CallCmd struct {
	Pos    Pos
	Callee string
	Args   []Expr
	Outs   []string
}

func (CallCmd) isCmd() {}
func (c CallCmd) Position() Pos { return c.Pos }
func (c CallCmd) String() string {
	s := "call "
	if len(c.Outs) > 0 {
		s += strings.Join(c.Outs, ", ") + " := "
	}
	return s + c.Callee + "(" + joinExprs(c.Args) + ");"
}

// Transfer ends a block.
type Transfer interface {
	isTransfer()
	Position() Pos
	String() string
}

// GotoCmd transfers control non-deterministically to any of its labels.
type GotoCmd struct {
	Pos    Pos
	Labels []string
}

func (GotoCmd) isTransfer() {}
func (c GotoCmd) Position() Pos { return c.Pos }
func (c GotoCmd) String() string {
	return "goto " + strings.Join(c.Labels, ", ") + ";"
}

// ReturnCmd leaves the procedure.
type ReturnCmd struct {
	Pos Pos
}

func (ReturnCmd) isTransfer() {}
func (c ReturnCmd) Position() Pos { return c.Pos }
func (ReturnCmd) String() string {
	return "return;"
}

// Block is a labeled basic block.
type Block struct {
	Label    string
	Pos      Pos
	Cmds     []Cmd
	Transfer Transfer
}

// Successors returns the goto targets of the block.
func (b *Block) Successors() []string {
	if g, ok := b.Transfer.(GotoCmd); ok {
		return g.Labels
	}
	return nil
}

// Variable is a typed name: a local, parameter, global or constant.
type Variable struct {
	Name string
	Type Type
}

func (v Variable) String() string {
	return v.Name + ": " + v.Type.String()
}

// Attribute is a {:name args} annotation; arguments are kept as printed text.
type Attribute struct {
	Name string
	Args []string
}

func (a Attribute) String() string {
	if len(a.Args) == 0 {
		return "{:" + a.Name + "}"
	}
	return "{:" + a.Name + " " + strings.Join(a.Args, ", ") + "}"
}

// Decl is a top-level declaration.
type Decl interface {
	isDecl()
	DeclName() string
}

// TypeDecl declares an uninterpreted type.
type TypeDecl struct {
	Pos   Pos
	Attrs []Attribute
	Name  string
}

func (*TypeDecl) isDecl() {}
func (d *TypeDecl) DeclName() string { return d.Name }

// ConstDecl declares a constant.
type ConstDecl struct {
	Pos    Pos
	Attrs  []Attribute
	Unique bool
	Var    Variable
}

func (*ConstDecl) isDecl() {}
func (d *ConstDecl) DeclName() string { return d.Var.Name }

// GlobalDecl declares a global variable.
type GlobalDecl struct {
	Pos   Pos
	Attrs []Attribute
	Var   Variable
}

func (*GlobalDecl) isDecl() {}
func (d *GlobalDecl) DeclName() string { return d.Var.Name }

// FunctionDecl declares a pure function, optionally with a body.
type FunctionDecl struct {
	Pos    Pos
	Attrs  []Attribute
	Name   string
	Params []Variable // names may be empty
	Result Variable   // name may be empty
	Body   Expr
}

func (*FunctionDecl) isDecl() {}
func (d *FunctionDecl) DeclName() string { return d.Name }

// Procedure declares a procedure. A procedure with a body is an implementation.
type Procedure struct {
	Pos       Pos
	Attrs     []Attribute
	Name      string
	InParams  []Variable
	OutParams []Variable
	Requires  []Expr
	Ensures   []Expr
	Modifies  []string

	HasBody bool
	Locals  []Variable
	Blocks  []*Block
}

func (*Procedure) isDecl() {}
func (d *Procedure) DeclName() string { return d.Name }

// Entry returns the entry block, or nil for a body-less procedure.
func (d *Procedure) Entry() *Block {
	if len(d.Blocks) == 0 {
		return nil
	}
	return d.Blocks[0]
}

// Block returns the block with the given label.
func (d *Procedure) Block(label string) *Block {
	for _, b := range d.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

// Program is a parsed source file.
type Program struct {
	Filename string
	Decls    []Decl
}

// Implementations returns all procedures that have a body.
func (p *Program) Implementations() []*Procedure {
	var impls []*Procedure
	for _, d := range p.Decls {
		if proc, ok := d.(*Procedure); ok && proc.HasBody {
			impls = append(impls, proc)
		}
	}
	return impls
}

// Procedures returns every procedure declaration, with or without a body.
func (p *Program) Procedures() []*Procedure {
	var procs []*Procedure
	for _, d := range p.Decls {
		if proc, ok := d.(*Procedure); ok {
			procs = append(procs, proc)
		}
	}
	return procs
}

// Procedure returns the named procedure or nil.
func (p *Program) Procedure(name string) *Procedure {
	for _, proc := range p.Procedures() {
		if proc.Name == name {
			return proc
		}
	}
	return nil
}

func (p *Program) Functions() []*FunctionDecl {
	var fns []*FunctionDecl
	for _, d := range p.Decls {
		if fn, ok := d.(*FunctionDecl); ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func (p *Program) Constants() []*ConstDecl {
	var cs []*ConstDecl
	for _, d := range p.Decls {
		if c, ok := d.(*ConstDecl); ok {
			cs = append(cs, c)
		}
	}
	return cs
}

func (p *Program) Globals() []*GlobalDecl {
	var gs []*GlobalDecl
	for _, d := range p.Decls {
		if g, ok := d.(*GlobalDecl); ok {
			gs = append(gs, g)
		}
	}
	return gs
}

func (p *Program) Types() []*TypeDecl {
	var ts []*TypeDecl
	for _, d := range p.Decls {
		if t, ok := d.(*TypeDecl); ok {
			ts = append(ts, t)
		}
	}
	return ts
}

// HasDecl reports whether a top-level declaration with the given name exists.
func (p *Program) HasDecl(name string) bool {
	for _, d := range p.Decls {
		if d.DeclName() == name {
			return true
		}
	}
	return false
}
