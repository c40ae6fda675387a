package checker

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
	"github.com/gnoswap-labs/bplmatch/internal/symbolic"
)

// fakeSolver decides an obligation from the printed goal alone.
type fakeSolver struct {
	decide func(hyps []string, goal string) (bool, error)
	closed *atomic.Int32
}

func (s *fakeSolver) Valid(_ context.Context, _ map[string]bpl.Type, hyps []bpl.Expr, goal bpl.Expr) (bool, error) {
	printed := make([]string, len(hyps))
	for i, h := range hyps {
		printed[i] = h.String()
	}
	return s.decide(printed, goal.String())
}

func (s *fakeSolver) Close() {
	s.closed.Add(1)
}

func fakeFactory(closed *atomic.Int32, decide func([]string, string) (bool, error)) symbolic.SolverFactory {
	return func() (symbolic.Solver, error) {
		return &fakeSolver{decide: decide, closed: closed}, nil
	}
}

const sectionProgram = `procedure p(a: int, b: int)
{
  var h: bool;

  entry:
    goto left, right;

  left:
    assume a == b;
    goto join;

  right:
    goto join;

  join:
    havoc h;
    assert h || a == b;
    assert false;
    return;
}
`

func TestInProcessCheck(t *testing.T) {
	t.Parallel()
	prog, err := bpl.Parse("p.bpl", sectionProgram)
	require.NoError(t, err)

	var provesFalse bool
	// a == b is only assumed on the path through left
	decide := func(hyps []string, goal string) (bool, error) {
		if goal == "false" {
			return provesFalse, nil
		}
		return strings.Contains(goal, "a == b") && slices.Contains(hyps, "a == b"), nil
	}

	tests := []struct {
		name     string
		failed   map[int]bool
		verified int
	}{
		// lines 17 and 18 hold the two assertions
		{"refuted on one path", map[int]bool{17: true, 18: true}, 0},
		{"false proven", map[int]bool{17: true}, 1},
	}

	for i, tt := range tests {
		provesFalse = i == 1
		var closed atomic.Int32
		c := NewInProcess(zap.NewNop(), fakeFactory(&closed, decide), InProcessOptions{Workers: 3})
		report, err := c.Check(context.Background(), "p.bpl", prog)
		require.NoError(t, err, tt.name)

		assert.Equal(t, tt.failed, report.Failed, tt.name)
		assert.Equal(t, len(tt.failed), report.Errors, tt.name)
		assert.Equal(t, tt.verified, report.Verified, tt.name)
		assert.Equal(t, int32(3), closed.Load(), "one solver per worker, all closed")
	}
}

func TestInProcessProvesEverything(t *testing.T) {
	t.Parallel()
	prog, err := bpl.Parse("p.bpl", sectionProgram)
	require.NoError(t, err)

	var closed atomic.Int32
	c := NewInProcess(zap.NewNop(), fakeFactory(&closed, func([]string, string) (bool, error) { return true, nil }), InProcessOptions{Workers: 2})
	report, err := c.Check(context.Background(), "p.bpl", prog)
	require.NoError(t, err)

	assert.Empty(t, report.Failed)
	assert.Equal(t, 2, report.Verified)
	assert.Equal(t, Proven, report.VerdictFor(bpl.Pos{Line: 18}))
}

func TestInProcessUndecidedIsRefuted(t *testing.T) {
	t.Parallel()
	prog, err := bpl.Parse("p.bpl", sectionProgram)
	require.NoError(t, err)

	var closed atomic.Int32
	decide := func(_ []string, goal string) (bool, error) {
		if goal == "false" {
			return false, symbolic.ErrUnknown
		}
		return false, symbolic.ErrUnsupported
	}
	report, err := NewInProcess(zap.NewNop(), fakeFactory(&closed, decide), InProcessOptions{Workers: 1}).
		Check(context.Background(), "p.bpl", prog)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{17: true, 18: true}, report.Failed)
}

func TestInProcessErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	prog, err := bpl.Parse("p.bpl", sectionProgram)
	require.NoError(t, err)

	tests := []struct {
		name    string
		prog    *bpl.Program
		factory symbolic.SolverFactory
		target  error
	}{
		{
			name:    "solver failure",
			prog:    prog,
			factory: fakeFactory(new(atomic.Int32), func([]string, string) (bool, error) { return false, boom }),
			target:  boom,
		},
		{
			name:    "factory failure",
			prog:    prog,
			factory: func() (symbolic.Solver, error) { return nil, boom },
			target:  boom,
		},
		{
			name:    "cyclic body",
			prog:    mustParseProgram(t, "procedure p() { a: goto b; b: goto a; }"),
			factory: fakeFactory(new(atomic.Int32), func([]string, string) (bool, error) { return true, nil }),
		},
		{
			name:    "no implementation",
			prog:    mustParseProgram(t, "procedure p();"),
			factory: fakeFactory(new(atomic.Int32), func([]string, string) (bool, error) { return true, nil }),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewInProcess(zap.NewNop(), tt.factory, InProcessOptions{Workers: 2}).
				Check(context.Background(), "p.bpl", tt.prog)
			require.Error(t, err)

			var chkErr *CheckerError
			assert.ErrorAs(t, err, &chkErr)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func mustParseProgram(t *testing.T, src string) *bpl.Program {
	t.Helper()
	prog, err := bpl.Parse("p.bpl", src)
	require.NoError(t, err)
	return prog
}
