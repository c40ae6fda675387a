package bpl

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Error is a parse or resolution error at a source position.
type Error struct {
	Filename string
	Pos      Pos
	Msg      string
}

func (e *Error) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s:%s: %s", e.Filename, e.Pos, e.Msg)
}

// Parser consumes tokens produced by the lexer and builds a Program.
type Parser struct {
	filename string
	tokens   []Token
	current  int
	anon     int
}

// ParseFile reads and parses the file at path.
func ParseFile(path string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, string(src))
}

// Parse parses src. The filename is only used in error messages.
func Parse(filename, src string) (*Program, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	p := &Parser{filename: filename, tokens: tokens}
	return p.parseProgram()
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) peekAt(n int) Token {
	if p.current+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+n]
}

func (p *Parser) next() Token {
	tok := p.tokens[p.current]
	if tok.Type != TokenEOF {
		p.current++
	}
	return tok
}

// is reports whether the current token is the given punctuator or keyword.
func (p *Parser) is(value string) bool {
	tok := p.peek()
	return (tok.Type == TokenPunct || tok.Type == TokenKeyword) && tok.Value == value
}

func (p *Parser) accept(value string) bool {
	if p.is(value) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) errorf(pos Pos, format string, args ...any) error {
	return &Error{Filename: p.filename, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(value string) (Token, error) {
	tok := p.peek()
	if !p.is(value) {
		return tok, p.errorf(tok.Pos, "expected %q, found %q", value, tok.Value)
	}
	return p.next(), nil
}

func (p *Parser) ident() (Token, error) {
	tok := p.peek()
	if tok.Type != TokenIdent {
		return tok, p.errorf(tok.Pos, "expected identifier, found %q", tok.Value)
	}
	return p.next(), nil
}

func (p *Parser) parseProgram() (*Program, error) {
	prog := &Program{Filename: p.filename}
	for p.peek().Type != TokenEOF {
		decls, err := p.parseDecl(prog)
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, decls...)
	}
	return prog, nil
}

func (p *Parser) parseDecl(prog *Program) ([]Decl, error) {
	tok := p.peek()
	switch {
	case p.is("type"):
		return p.parseTypeDecl()
	case p.is("const"):
		return p.parseConstDecl()
	case p.is("var"):
		return p.parseGlobalDecl()
	case p.is("function"):
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		return []Decl{fn}, nil
	case p.is("procedure"):
		proc, err := p.parseProcedure()
		if err != nil {
			return nil, err
		}
		return []Decl{proc}, nil
	case p.is("implementation"):
		return p.parseImplementation(prog)
	default:
		return nil, p.errorf(tok.Pos, "unexpected %q at top level", tok.Value)
	}
}

func (p *Parser) parseAttributes() ([]Attribute, error) {
	var attrs []Attribute
	for p.is("{:") {
		p.next()
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		attr := Attribute{Name: name.Value}
		for !p.is("}") {
			if len(attr.Args) > 0 {
				if _, err := p.expect(","); err != nil {
					return nil, err
				}
			}
			if p.peek().Type == TokenString {
				attr.Args = append(attr.Args, p.next().Value)
				continue
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			attr.Args = append(attr.Args, e.String())
		}
		p.next()
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func (p *Parser) parseTypeDecl() ([]Decl, error) {
	start := p.next()
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return []Decl{&TypeDecl{Pos: start.Pos, Attrs: attrs, Name: name.Value}}, nil
}

func (p *Parser) parseConstDecl() ([]Decl, error) {
	start := p.next()
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}
	unique := p.accept("unique")
	vars, err := p.parseIdsTypes(";")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	decls := make([]Decl, len(vars))
	for i, v := range vars {
		decls[i] = &ConstDecl{Pos: start.Pos, Attrs: attrs, Unique: unique, Var: v}
	}
	return decls, nil
}

func (p *Parser) parseGlobalDecl() ([]Decl, error) {
	start := p.next()
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}
	vars, err := p.parseIdsTypes(";")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	decls := make([]Decl, len(vars))
	for i, v := range vars {
		decls[i] = &GlobalDecl{Pos: start.Pos, Attrs: attrs, Var: v}
	}
	return decls, nil
}

// parseIdsTypes parses `a, b: T, c: U` up to (not including) the closing token.
func (p *Parser) parseIdsTypes(closing string) ([]Variable, error) {
	var vars []Variable
	var pending []string
	for !p.is(closing) {
		if len(vars) > 0 || len(pending) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		pending = append(pending, name.Value)
		if p.accept(":") {
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			for _, n := range pending {
				vars = append(vars, Variable{Name: n, Type: typ})
			}
			pending = nil
		}
	}
	if len(pending) > 0 {
		return nil, p.errorf(p.peek().Pos, "missing type for %s", strings.Join(pending, ", "))
	}
	return vars, nil
}

func (p *Parser) parseType() (Type, error) {
	if p.accept("[") {
		var keys []Type
		for !p.is("]") {
			if len(keys) > 0 {
				if _, err := p.expect(","); err != nil {
					return nil, err
				}
			}
			k, err := p.parseType()
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
		}
		p.next()
		val, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return MapType{Keys: keys, Value: val}, nil
	}
	tok, err := p.ident()
	if err != nil {
		return nil, err
	}
	switch {
	case tok.Value == "bool":
		return Bool, nil
	case tok.Value == "int":
		return Int, nil
	case strings.HasPrefix(tok.Value, "bv"):
		if w, err := strconv.Atoi(tok.Value[2:]); err == nil && w > 0 {
			return Bv(w), nil
		}
	}
	return NamedType{Name: tok.Value}, nil
}

func (p *Parser) parseFunction() (*FunctionDecl, error) {
	start := p.next()
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	fn := &FunctionDecl{Pos: start.Pos, Attrs: attrs, Name: name.Value}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	for !p.is(")") {
		if len(fn.Params) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
		v, err := p.parseFunctionArg()
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, v)
	}
	p.next()
	if _, err := p.expect("returns"); err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	if fn.Result, err = p.parseFunctionArg(); err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	if p.accept(";") {
		return fn, nil
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	if fn.Body, err = p.parseExpr(); err != nil {
		return nil, err
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *Parser) parseFunctionArg() (Variable, error) {
	if p.peek().Type == TokenIdent && p.peekAt(1).Value == ":" {
		name := p.next()
		p.next()
		typ, err := p.parseType()
		if err != nil {
			return Variable{}, err
		}
		return Variable{Name: name.Value, Type: typ}, nil
	}
	typ, err := p.parseType()
	if err != nil {
		return Variable{}, err
	}
	return Variable{Type: typ}, nil
}

func (p *Parser) parseSignature(proc *Procedure) error {
	attrs, err := p.parseAttributes()
	if err != nil {
		return err
	}
	name, err := p.ident()
	if err != nil {
		return err
	}
	proc.Attrs, proc.Name = attrs, name.Value
	if _, err := p.expect("("); err != nil {
		return err
	}
	if proc.InParams, err = p.parseIdsTypes(")"); err != nil {
		return err
	}
	p.next()
	if p.accept("returns") {
		if _, err := p.expect("("); err != nil {
			return err
		}
		if proc.OutParams, err = p.parseIdsTypes(")"); err != nil {
			return err
		}
		p.next()
	}
	return nil
}

func (p *Parser) parseProcedure() (*Procedure, error) {
	start := p.next()
	proc := &Procedure{Pos: start.Pos}
	if err := p.parseSignature(proc); err != nil {
		return nil, err
	}
	bodyless := p.accept(";")
	if err := p.parseSpecs(proc); err != nil {
		return nil, err
	}
	if bodyless {
		return proc, nil
	}
	if err := p.parseBody(proc); err != nil {
		return nil, err
	}
	return proc, nil
}

func (p *Parser) parseSpecs(proc *Procedure) error {
	for {
		p.accept("free")
		switch {
		case p.accept("requires"):
			e, err := p.parseExpr()
			if err != nil {
				return err
			}
			proc.Requires = append(proc.Requires, e)
		case p.accept("ensures"):
			e, err := p.parseExpr()
			if err != nil {
				return err
			}
			proc.Ensures = append(proc.Ensures, e)
		case p.accept("modifies"):
			for !p.is(";") {
				if len(proc.Modifies) > 0 && !p.accept(",") {
					return p.errorf(p.peek().Pos, "expected \",\" in modifies clause")
				}
				name, err := p.ident()
				if err != nil {
					return err
				}
				proc.Modifies = append(proc.Modifies, name.Value)
			}
		default:
			return nil
		}
		if _, err := p.expect(";"); err != nil {
			return err
		}
	}
}

// parseImplementation attaches a body to a previously declared procedure.
func (p *Parser) parseImplementation(prog *Program) ([]Decl, error) {
	start := p.next()
	impl := &Procedure{Pos: start.Pos}
	if err := p.parseSignature(impl); err != nil {
		return nil, err
	}
	if err := p.parseBody(impl); err != nil {
		return nil, err
	}
	decl := prog.Procedure(impl.Name)
	if decl == nil {
		return nil, p.errorf(start.Pos, "implementation of undeclared procedure %q", impl.Name)
	}
	if decl.HasBody {
		return nil, p.errorf(start.Pos, "procedure %q already has a body", impl.Name)
	}
	if len(decl.InParams) != len(impl.InParams) || len(decl.OutParams) != len(impl.OutParams) {
		return nil, p.errorf(start.Pos, "implementation of %q does not match its declaration", impl.Name)
	}
	decl.InParams, decl.OutParams = impl.InParams, impl.OutParams
	decl.HasBody, decl.Locals, decl.Blocks = true, impl.Locals, impl.Blocks
	return nil, nil
}

func (p *Parser) parseBody(proc *Procedure) error {
	if _, err := p.expect("{"); err != nil {
		return err
	}
	proc.HasBody = true

	for p.is("var") {
		p.next()
		if _, err := p.parseAttributes(); err != nil {
			return err
		}
		vars, err := p.parseIdsTypes(";")
		if err != nil {
			return err
		}
		p.next()
		proc.Locals = append(proc.Locals, vars...)
	}

	var cur *Block
	for !p.is("}") {
		tok := p.peek()
		if tok.Type == TokenEOF {
			return p.errorf(tok.Pos, "unexpected end of file in body of %q", proc.Name)
		}

		if tok.Type == TokenIdent && p.peekAt(1).Value == ":" && p.peekAt(1).Type == TokenPunct {
			p.next()
			p.next()
			if cur != nil && cur.Transfer == nil {
				cur.Transfer = GotoCmd{Pos: tok.Pos, Labels: []string{tok.Value}}
			}
			cur = &Block{Label: tok.Value, Pos: tok.Pos}
			proc.Blocks = append(proc.Blocks, cur)
			continue
		}

		if cur == nil || cur.Transfer != nil {
			if cur != nil {
				return p.errorf(tok.Pos, "unreachable command after %s", cur.Transfer.String())
			}
			cur = &Block{Label: p.anonLabel(), Pos: tok.Pos}
			proc.Blocks = append(proc.Blocks, cur)
		}

		switch {
		case p.accept("goto"):
			var labels []string
			for !p.is(";") {
				if len(labels) > 0 {
					if _, err := p.expect(","); err != nil {
						return err
					}
				}
				l, err := p.ident()
				if err != nil {
					return err
				}
				labels = append(labels, l.Value)
			}
			p.next()
			cur.Transfer = GotoCmd{Pos: tok.Pos, Labels: labels}
		case p.accept("return"):
			if _, err := p.expect(";"); err != nil {
				return err
			}
			cur.Transfer = ReturnCmd{Pos: tok.Pos}
		default:
			cmd, err := p.parseCmd()
			if err != nil {
				return err
			}
			cur.Cmds = append(cur.Cmds, cmd)
		}
	}
	p.next()

	if cur != nil && cur.Transfer == nil {
		cur.Transfer = ReturnCmd{Pos: cur.Pos}
	}
	return nil
}

func (p *Parser) anonLabel() string {
	label := "anon" + strconv.Itoa(p.anon)
	p.anon++
	return label
}

func (p *Parser) parseCmd() (Cmd, error) {
	tok := p.peek()
	switch {
	case p.accept("assert"):
		if _, err := p.parseAttributes(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		_, err = p.expect(";")
		return AssertCmd{Pos: tok.Pos, Expr: e}, err
	case p.accept("assume"):
		if _, err := p.parseAttributes(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		_, err = p.expect(";")
		return AssumeCmd{Pos: tok.Pos, Expr: e}, err
	case p.accept("havoc"):
		var names []string
		for !p.is(";") {
			if len(names) > 0 {
				if _, err := p.expect(","); err != nil {
					return nil, err
				}
			}
			n, err := p.ident()
			if err != nil {
				return nil, err
			}
			names = append(names, n.Value)
		}
		p.next()
		return HavocCmd{Pos: tok.Pos, Vars: names}, nil
	case p.accept("call"):
		return p.parseCall(tok.Pos)
	case tok.Type == TokenIdent:
		return p.parseAssign(tok.Pos)
	default:
		return nil, p.errorf(tok.Pos, "unexpected %q, expected a command", tok.Value)
	}
}

func (p *Parser) parseCall(pos Pos) (Cmd, error) {
	var outs []string
	if p.peekAt(1).Value == "," || p.peekAt(1).Value == ":=" {
		for {
			n, err := p.ident()
			if err != nil {
				return nil, err
			}
			outs = append(outs, n.Value)
			if !p.accept(",") {
				break
			}
		}
		if _, err := p.expect(":="); err != nil {
			return nil, err
		}
	}
	callee, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	args, err := p.parseExprList(")")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return CallCmd{Pos: pos, Callee: callee.Value, Args: args, Outs: outs}, nil
}

func (p *Parser) parseAssign(pos Pos) (Cmd, error) {
	var lhs []AssignLhs
	for {
		n, err := p.ident()
		if err != nil {
			return nil, err
		}
		l := AssignLhs{Name: n.Value}
		if p.accept("[") {
			if l.Index, err = p.parseExprList("]"); err != nil {
				return nil, err
			}
		}
		lhs = append(lhs, l)
		if !p.accept(",") {
			break
		}
	}
	if _, err := p.expect(":="); err != nil {
		return nil, err
	}
	var rhs []Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		rhs = append(rhs, e)
		if !p.accept(",") {
			break
		}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	if len(lhs) != len(rhs) {
		return nil, p.errorf(pos, "assignment has %d targets but %d values", len(lhs), len(rhs))
	}
	return AssignCmd{Pos: pos, Lhs: lhs, Rhs: rhs}, nil
}

// parseExprList parses comma separated expressions and consumes the closing token.
func (p *Parser) parseExprList(closing string) ([]Expr, error) {
	var es []Expr
	for !p.is(closing) {
		if len(es) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		es = append(es, e)
	}
	p.next()
	return es, nil
}

func (p *Parser) parseExpr() (Expr, error) {
	left, err := p.parseImplies()
	if err != nil {
		return nil, err
	}
	for p.accept("<==>") {
		right, err := p.parseImplies()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: OpIff, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseImplies() (Expr, error) {
	left, err := p.parseLogical()
	if err != nil {
		return nil, err
	}
	if p.accept("==>") {
		right, err := p.parseImplies()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: OpImplies, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseLogical() (Expr, error) {
	left, err := p.parseRel()
	if err != nil {
		return nil, err
	}
	var op BinaryOp
	switch {
	case p.is("&&"):
		op = OpAnd
	case p.is("||"):
		op = OpOr
	default:
		return left, nil
	}
	for p.accept(op.String()) {
		right, err := p.parseRel()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	if p.is("&&") || p.is("||") {
		return nil, p.errorf(p.peek().Pos, "mixing && and || requires parentheses")
	}
	return left, nil
}

var relOps = map[string]BinaryOp{
	"==": OpEq, "!=": OpNeq, "<": OpLt, "<=": OpLte, ">": OpGt, ">=": OpGte,
}

func (p *Parser) parseRel() (Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if op, ok := relOps[tok.Value]; ok && tok.Type == TokenPunct {
		p.next()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseAdd() (Expr, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.is("+") || p.is("-") {
		op := OpAdd
		if p.next().Value == "-" {
			op = OpSub
		}
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMul() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.is("*") || p.is("div") || p.is("mod") {
		var op BinaryOp
		switch p.next().Value {
		case "*":
			op = OpMul
		case "div":
			op = OpDiv
		default:
			op = OpMod
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	switch {
	case p.accept("!"):
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: OpNot, X: x}, nil
	case p.accept("-"):
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: OpNeg, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	e, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.accept("[") {
		var index []Expr
		for !p.is("]") && !p.is(":=") {
			if len(index) > 0 {
				if _, err := p.expect(","); err != nil {
					return nil, err
				}
			}
			i, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			index = append(index, i)
		}
		if p.accept(":=") {
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
			e = StoreExpr{Map: e, Index: index, Value: val}
			continue
		}
		p.next()
		e = SelectExpr{Map: e, Index: index}
	}
	return e, nil
}

func (p *Parser) parseAtom() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case TokenInt:
		p.next()
		return IntLit{Value: tok.Value}, nil
	case TokenBv:
		p.next()
		i := strings.Index(tok.Value, "bv")
		width, err := strconv.Atoi(tok.Value[i+2:])
		if err != nil || width <= 0 {
			return nil, p.errorf(tok.Pos, "invalid bitvector literal %q", tok.Value)
		}
		return BvLit{Value: tok.Value[:i], Width: width}, nil
	case TokenIdent:
		p.next()
		if p.accept("(") {
			args, err := p.parseExprList(")")
			if err != nil {
				return nil, err
			}
			return CallExpr{Func: tok.Value, Args: args}, nil
		}
		return Ident{Name: tok.Value}, nil
	}

	switch {
	case p.accept("true"):
		return BoolLit{Val: true}, nil
	case p.accept("false"):
		return BoolLit{Val: false}, nil
	case p.accept("("):
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return e, nil
	case p.accept("if"):
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect("then"); err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect("else"); err != nil {
			return nil, err
		}
		els, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return IfThenElse{Cond: cond, Then: then, Else: els}, nil
	}
	return nil, p.errorf(tok.Pos, "unexpected %q in expression", tok.Value)
}
