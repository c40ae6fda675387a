package matcher

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

func hyp(v, q, t string) Hypothesis {
	return Hypothesis{Var: v, Query: bpl.Id(q), Target: bpl.Id(t)}
}

// crossGroups builds one group per query operand, each holding a hypothesis
// for every target operand.
func crossGroups(query, target []string) []Group {
	var hyps []Hypothesis
	n := 0
	for _, q := range query {
		for _, t := range target {
			hyps = append(hyps, hyp("eq_"+strconv.Itoa(n), q, t))
			n++
		}
	}
	return GroupHypotheses(hyps)
}

func pickVars(s *Section) []string {
	vars := make([]string, len(s.Picks))
	for i, p := range s.Picks {
		vars[i] = p.Var
	}
	return vars
}

func TestTail(t *testing.T) {
	t.Parallel()
	ctx := NewBuildContext(DefaultOptions())
	cands := []Candidate{
		{Query: bpl.Id("a"), Target: bpl.Id("v2.x")},
		{Query: bpl.Id("b"), Target: bpl.Id("v2.y")},
	}

	var got []string
	for _, c := range Tail(ctx, cands) {
		got = append(got, c.String())
	}
	assert.Equal(t, []string{
		"havoc h;",
		"assert h || a == v2.x;",
		"havoc h;",
		"assert h || b == v2.y;",
		"assert false;",
	}, got)
}

func TestTailWithoutCandidates(t *testing.T) {
	t.Parallel()
	tail := Tail(NewBuildContext(DefaultOptions()), nil)
	require.Len(t, tail, 1)
	assert.Equal(t, "assert false;", tail[0].String())
}

func TestEnumerate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		groups   []Group
		depth    int
		expected [][]string
	}{
		{
			name:     "no groups yields the base section",
			groups:   nil,
			expected: [][]string{{}},
		},
		{
			name:     "single group",
			groups:   crossGroups([]string{"p0"}, []string{"v2.p0", "v2.p1"}),
			expected: [][]string{{"eq_0"}, {"eq_1"}},
		},
		{
			name:   "injective over two groups",
			groups: crossGroups([]string{"p0", "p1"}, []string{"v2.p0", "v2.p1"}),
			// eq_0: p0=v2.p0, eq_1: p0=v2.p1, eq_2: p1=v2.p0, eq_3: p1=v2.p1
			expected: [][]string{{"eq_0", "eq_3"}, {"eq_1", "eq_2"}},
		},
		{
			name:     "depth limits picks per section",
			groups:   crossGroups([]string{"p0", "p1"}, []string{"v2.p0", "v2.p1"}),
			depth:    1,
			expected: [][]string{{"eq_0"}, {"eq_1"}, {"eq_2"}, {"eq_3"}},
		},
		{
			name:     "every combination dropped falls back to the base section",
			groups:   crossGroups([]string{"p0", "p1"}, []string{"v2.p0"}),
			expected: [][]string{{}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := DefaultOptions()
			opts.Depth = tt.depth
			ctx := NewBuildContext(opts)

			sections, err := Enumerate(ctx, tt.groups, Tail(ctx, nil))
			require.NoError(t, err)

			var got [][]string
			for i, s := range sections {
				assert.Equal(t, i, s.Seq)
				got = append(got, pickVars(s))
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEnumerateSectionInvariants(t *testing.T) {
	t.Parallel()
	groups := crossGroups([]string{"p0", "p1", "p2"}, []string{"v2.p0", "v2.p1", "v2.p2"})
	ctx := NewBuildContext(DefaultOptions())
	tail := Tail(ctx, []Candidate{{Query: bpl.Id("a"), Target: bpl.Id("v2.x")}})

	sections, err := Enumerate(ctx, groups, tail)
	require.NoError(t, err)
	// 3! injective assignments
	require.Len(t, sections, 6)

	labels := make(map[string]bool)
	for _, s := range sections {
		assert.False(t, labels[s.Label], "duplicate label %s", s.Label)
		labels[s.Label] = true

		targets := make(map[string]bool)
		keys := make(map[string]bool)
		for _, p := range s.Picks {
			assert.False(t, targets[p.Target.String()], "target used twice in %s", s.Label)
			assert.False(t, keys[p.Key()], "group used twice in %s", s.Label)
			targets[p.Target.String()] = true
			keys[p.Key()] = true
		}

		cmds := s.Block.Cmds
		require.Len(t, cmds, len(s.Picks)+len(tail))
		for i, p := range s.Picks {
			assert.Equal(t, "assume "+p.Var+";", cmds[i].String())
		}
		assert.Equal(t, "assert false;", cmds[len(cmds)-1].String())
		assert.IsType(t, bpl.ReturnCmd{}, s.Block.Transfer)
	}
	assert.Equal(t, 6*2, ctx.Obligations())
}

func TestEnumerateCeiling(t *testing.T) {
	t.Parallel()
	opts := DefaultOptions()
	opts.MaxObligations = 5
	ctx := NewBuildContext(opts)
	groups := crossGroups([]string{"p0"}, []string{"v2.p0", "v2.p1"})
	// two candidates and assert false: three obligations per section
	tail := Tail(ctx, []Candidate{
		{Query: bpl.Id("a"), Target: bpl.Id("v2.x")},
		{Query: bpl.Id("b"), Target: bpl.Id("v2.y")},
	})

	_, err := Enumerate(ctx, groups, tail)
	require.Error(t, err)

	var scale *UnsupportedScaleError
	require.True(t, errors.As(err, &scale))
	assert.Equal(t, 5, scale.Limit)
	assert.Equal(t, 6, scale.Reached)
	assert.Equal(t, "can't handle very long programs (max 5 assertions allowed, 6 reached)", err.Error())
}

func TestEnumerateDefaultCeiling(t *testing.T) {
	t.Parallel()
	ctx := NewBuildContext(Options{})
	var cands []Candidate
	for i := 0; i < DefaultMaxObligations; i++ {
		cands = append(cands, Candidate{Query: bpl.Id("a"), Target: bpl.Id("v2.x")})
	}

	// DefaultMaxObligations candidates plus assert false is one too many
	_, err := Enumerate(ctx, nil, Tail(ctx, cands))
	var scale *UnsupportedScaleError
	require.ErrorAs(t, err, &scale)
	assert.Equal(t, DefaultMaxObligations, scale.Limit)
}
