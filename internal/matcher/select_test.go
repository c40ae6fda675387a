package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
	"github.com/gnoswap-labs/bplmatch/internal/checker"
)

// emit prints and re-parses the combined program so that every command
// carries the line it was printed on.
func emit(t *testing.T, p *Problem) *bpl.Procedure {
	t.Helper()
	prog, err := bpl.Parse("joined.bpl", p.Program.String())
	require.NoError(t, err)
	impl := prog.Procedure(p.Impl.Name)
	require.NotNil(t, impl)
	return impl
}

// reportFor marks every assertion of impl as failed unless proven accepts it.
func reportFor(impl *bpl.Procedure, proven func(label, assertion string) bool) *checker.Report {
	report := &checker.Report{Failed: make(map[int]bool)}
	for _, b := range impl.Blocks {
		for _, c := range b.Cmds {
			a, ok := c.(bpl.AssertCmd)
			if !ok {
				continue
			}
			if !proven(b.Label, a.Expr.String()) {
				report.Failed[a.Pos.Line] = true
				report.Errors++
			}
		}
	}
	return report
}

func provenSet(assertions ...string) func(string, string) bool {
	set := make(map[string]bool)
	for _, a := range assertions {
		set[a] = true
	}
	return func(_ string, assertion string) bool {
		return set[assertion]
	}
}

const pairQuery = `procedure q(p0: int) returns (r: int)
{
  var a: int, b: bool;

  entry:
    a := p0 + 1;
    b := a > 0;
    r := a;
    return;
}
`

const pairTarget = `procedure t(p0: int) returns (r: int)
{
  var x: int, y: bool;

  entry:
    x := p0 + 1;
    y := x > 1;
    r := x;
    return;
}
`

func TestSelectPartialMatch(t *testing.T) {
	t.Parallel()
	p := assemble(t, DefaultOptions(), pairQuery, pairTarget)
	impl := emit(t, p)

	res, err := Select(p, impl, reportFor(impl, provenSet("h || a == v2.x")))
	require.NoError(t, err)

	assert.Equal(t, "section_0", res.Best.Label)
	assert.Equal(t, 1, res.Proven)
	assert.Equal(t, []string{"p0 == v2.p0"}, []string{res.Assumptions[0].String()})
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "a == v2.x", res.Matches[0].String())
	assert.Equal(t, []string{"v2.x"}, res.Matched)
	assert.Equal(t, 2, res.QueryLocals)
	assert.Equal(t, 50, res.Percentage)
	assert.Empty(t, res.Warnings)
	assert.False(t, res.Suspect)
}

func TestSelectTieGoesToFirstSection(t *testing.T) {
	t.Parallel()
	p := assemble(t, DefaultOptions(), branchingQuery, swappedTarget)
	impl := emit(t, p)
	require.Len(t, p.Sections, 2)

	// both sections prove two equalities
	res, err := Select(p, impl, reportFor(impl, provenSet(
		"h || a == v2.x", "h || b == v2.y",
		"h || a == v2.y", "h || b == v2.x",
	)))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Best.Seq)
	require.Len(t, res.Scores, 2)
	assert.Equal(t, res.Scores[0].Proven, res.Scores[1].Proven)

	// nothing proven anywhere still selects the first section
	res, err = Select(p, impl, reportFor(impl, provenSet()))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Best.Seq)
	assert.Equal(t, 0, res.Proven)
	assert.Empty(t, res.Matched)
	assert.Equal(t, 0, res.Percentage)
}

func TestSelectPicksMostProven(t *testing.T) {
	t.Parallel()
	p := assemble(t, DefaultOptions(), branchingQuery, swappedTarget)
	impl := emit(t, p)

	res, err := Select(p, impl, reportFor(impl, func(label, assertion string) bool {
		if label == "section_1" {
			return assertion == "h || a == v2.x" || assertion == "h || b == v2.y"
		}
		return assertion == "h || a == v2.y"
	}))
	require.NoError(t, err)

	assert.Equal(t, "section_1", res.Best.Label)
	assert.Equal(t, 2, res.Proven)
	assert.Equal(t, []string{"v2.x", "v2.y"}, res.Matched)
	assert.Equal(t, 100, res.Percentage)
}

func TestSelectIsMonotone(t *testing.T) {
	t.Parallel()
	p := assemble(t, DefaultOptions(), branchingQuery, swappedTarget)
	impl := emit(t, p)

	few, err := Select(p, impl, reportFor(impl, provenSet("h || a == v2.x")))
	require.NoError(t, err)
	more, err := Select(p, impl, reportFor(impl, provenSet("h || a == v2.x", "h || b == v2.x")))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, more.Proven, few.Proven)
}

func TestSelectInconsistentSection(t *testing.T) {
	t.Parallel()
	p := assemble(t, DefaultOptions(), pairQuery, pairTarget)
	impl := emit(t, p)

	// a contradictory section proves everything, including false
	res, err := Select(p, impl, reportFor(impl, func(string, string) bool { return true }))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Proven)
	assert.True(t, res.Suspect)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "section_0", res.Warnings[0].Label)
	// assert false is not a match
	assert.Len(t, res.Matches, 2)
	assert.Equal(t, 100, res.Percentage)
}

func TestSelectIncompleteReport(t *testing.T) {
	t.Parallel()
	p := assemble(t, DefaultOptions(), pairQuery, pairTarget)
	impl := emit(t, p)

	report := reportFor(impl, func(string, string) bool { return true })
	report.Incomplete = true

	res, err := Select(p, impl, report)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Proven)
	assert.Empty(t, res.Matched)
	assert.Empty(t, res.Warnings)
}

func TestSelectMissingSection(t *testing.T) {
	t.Parallel()
	p := assemble(t, DefaultOptions(), pairQuery, pairTarget)
	impl := emit(t, p)
	impl.Blocks = impl.Blocks[:len(impl.Blocks)-1]

	_, err := Select(p, impl, reportFor(impl, provenSet()))
	assert.ErrorContains(t, err, "section_0 missing")
}

func TestGuardedEquality(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		expr  bpl.Expr
		match string
		ok    bool
	}{
		{"guarded", bpl.Or(bpl.Id("h"), bpl.Eq(bpl.Id("a"), bpl.Id("v2.x"))), "a == v2.x", true},
		{"other guard", bpl.Or(bpl.Id("g"), bpl.Eq(bpl.Id("a"), bpl.Id("v2.x"))), "", false},
		{"unguarded", bpl.Eq(bpl.Id("a"), bpl.Id("v2.x")), "", false},
		{"not an equality", bpl.Or(bpl.Id("h"), bpl.Id("a")), "", false},
		{"false", bpl.False(), "", false},
	}
	for _, tt := range tests {
		m, ok := guardedEquality(tt.expr, "h")
		assert.Equal(t, tt.ok, ok, tt.name)
		if ok {
			assert.Equal(t, tt.match, m.String(), tt.name)
		}
	}
}

func TestPercentage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		matched, locals, expected int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 4, 0},
		{1, 2, 50},
		{1, 3, 33},
		{2, 3, 66},
		{2, 2, 100},
		{3, 2, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Percentage(tt.matched, tt.locals), "%d/%d", tt.matched, tt.locals)
	}
}

func TestSelectLocalWithoutCounterpart(t *testing.T) {
	t.Parallel()
	intOnly := `procedure t(p0: int) returns (r: int)
{
  var x: int;

  entry:
    x := p0 + 1;
    r := x;
    return;
}
`
	p := assemble(t, DefaultOptions(), pairQuery, intOnly)
	impl := emit(t, p)

	res, err := Select(p, impl, reportFor(impl, func(_, assertion string) bool {
		return assertion != "false"
	}))
	require.NoError(t, err)

	// b has no bool counterpart but still counts as an unmatched local
	assert.Equal(t, []string{"v2.x"}, res.Matched)
	assert.Equal(t, 2, res.QueryLocals)
	assert.Equal(t, 50, res.Percentage)
}
