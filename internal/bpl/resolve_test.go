package bpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		msgs []string
	}{
		{
			name: "valid",
			src:  sampleTrace,
		},
		{
			name: "undeclared identifier",
			src:  "procedure p() { assume z; }",
			msgs: []string{`undeclared identifier "z"`},
		},
		{
			name: "undeclared label",
			src:  "procedure p() { goto nowhere; }",
			msgs: []string{`goto to undeclared label "nowhere"`},
		},
		{
			name: "duplicate label",
			src:  "procedure p() { a: goto a2; a2: return; a: return; }",
			msgs: []string{`duplicate label "a"`},
		},
		{
			name: "call arity",
			src:  "procedure q(x: int); procedure p() { call q(); }",
			msgs: []string{`call to "q" has wrong arity`},
		},
		{
			name: "undeclared type and function",
			src:  "var g: T; procedure p() { assume h(1) == 0; }",
			msgs: []string{`undeclared type "T"`, `call to undeclared function "h"`},
		},
		{
			name: "duplicate variable",
			src:  "procedure p(x: int) { var x: int; return; }",
			msgs: []string{`duplicate variable "x" in "p"`},
		},
		{
			name: "modifies unknown global",
			src:  "procedure q(); modifies g;",
			msgs: []string{`modifies clause names undeclared global "g"`},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prog, err := Parse("resolve.bpl", tt.src)
			require.NoError(t, err)

			err = Resolve(prog)
			if len(tt.msgs) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tt.msgs {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestTypeOf(t *testing.T) {
	t.Parallel()
	prog, err := Parse("sample.bpl", sampleTrace)
	require.NoError(t, err)
	scope := prog.Scope(prog.Procedure("p"))

	tests := []struct {
		expr     Expr
		expected Type
	}{
		{Id("a"), Int},
		{Id("b"), Bool},
		{Id("c0"), NamedType{Name: "ref"}},
		{SelectExpr{Map: Id("mem"), Index: []Expr{Id("x")}}, Int},
		{CallExpr{Func: "f", Args: []Expr{Id("x")}}, Int},
		{Eq(Id("a"), Id("x")), Bool},
		{BinaryExpr{Op: OpAdd, Left: Id("a"), Right: IntLit{Value: "1"}}, Int},
		{BvLit{Value: "1", Width: 8}, Bv(8)},
		{Id("unknown"), nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, TypeOf(prog, scope, tt.expr), tt.expr.String())
	}
}

func TestInspectSkipsChildren(t *testing.T) {
	t.Parallel()
	e := And(Eq(Id("a"), Id("b")), Not(Id("c")))

	var visited []string
	Inspect(e, func(e Expr) bool {
		if id, ok := e.(Ident); ok {
			visited = append(visited, id.Name)
		}
		_, isNot := e.(UnaryExpr)
		return !isNot
	})
	assert.Equal(t, []string{"a", "b"}, visited)
}

func TestInferModifies(t *testing.T) {
	t.Parallel()
	src := `var g: int;
var mem: [int]int;
var untouched: int;
procedure lib();
  modifies mem;

procedure p(g2: int)
{
  var local: int;
  entry:
    local := 1;
    g := local;
    call lib();
    return;
}
`
	prog, err := Parse("mods.bpl", src)
	require.NoError(t, err)
	require.NoError(t, Resolve(prog))

	InferModifies(prog)
	assert.Equal(t, []string{"g", "mem"}, prog.Procedure("p").Modifies)
	assert.Equal(t, []string{"mem"}, prog.Procedure("lib").Modifies)
}
