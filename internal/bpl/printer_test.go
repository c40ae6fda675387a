package bpl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintRoundTrip(t *testing.T) {
	t.Parallel()
	prog, err := Parse("sample.bpl", sampleTrace)
	require.NoError(t, err)

	printed := prog.String()
	again, err := Parse("printed.bpl", printed)
	require.NoError(t, err)
	assert.Equal(t, printed, again.String())

	// positions move when printed; the tree itself must not
	opts := cmp.Options{
		cmpopts.IgnoreTypes(Pos{}),
		cmpopts.IgnoreFields(Program{}, "Filename"),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(prog, again, opts); diff != "" {
		t.Errorf("reparsed program differs (-want +got):\n%s", diff)
	}
}

func TestPrintExpressions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src      string
		expected string
	}{
		{"x := (a + b) * c;", "x := (a + b) * c;"},
		{"x := a + b * c;", "x := a + b * c;"},
		{"x := -(a - b);", "x := -(a - b);"},
		{"x := m[a := b][c];", "x := m[a := b][c];"},
		{"p := !(q && r);", "p := !(q && r);"},
		{"p := q ==> r ==> s;", "p := q ==> (r ==> s);"},
		{"x := (if q then a else b);", "x := (if q then a else b);"},
		{"x := f(a, 1bv8);", "x := f(a, 1bv8);"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			src := "procedure p() { " + tt.src + " }"
			prog, err := Parse("expr.bpl", src)
			require.NoError(t, err)
			cmd := prog.Procedure("p").Entry().Cmds[0]
			assert.Equal(t, tt.expected, cmd.String())
		})
	}
}

func TestPrintOneCommandPerLine(t *testing.T) {
	t.Parallel()
	proc := &Procedure{
		Name:    "p",
		HasBody: true,
		Locals:  []Variable{{Name: "h", Type: Bool}},
		Blocks: []*Block{{
			Label:    "entry",
			Cmds:     []Cmd{Havoc("h"), Assert(Or(Id("h"), Eq(Id("a"), Id("b")))), Assert(False())},
			Transfer: Return(),
		}},
	}
	expected := "procedure p()\n" +
		"{\n" +
		"  var h: bool;\n" +
		"\n" +
		"  entry:\n" +
		"    havoc h;\n" +
		"    assert h || a == b;\n" +
		"    assert false;\n" +
		"    return;\n" +
		"}\n"
	assert.Equal(t, expected, (&Program{Decls: []Decl{proc}}).String())
}

func TestWriteFile(t *testing.T) {
	t.Parallel()
	prog, err := Parse("sample.bpl", sampleTrace)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.bpl")
	require.NoError(t, WriteFile(path, prog))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, prog.String(), string(data))

	reread, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, reread.Filename)
	assert.NoError(t, Resolve(reread))
}
