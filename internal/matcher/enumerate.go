package matcher

import (
	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

// Section is one candidate set of assumptions followed by the obligation
// tail. Sections are siblings: each is a branch target of the joined body
// and returns.
type Section struct {
	Seq   int
	Label string
	Picks []Hypothesis
	Block *bpl.Block
}

// Tail builds the obligations shared by every section: for each candidate
// `havoc h; assert h || q == t;`, then a final `assert false;`.
//
// The havoc makes each obligation non-binding: h may always be true, so a
// failing equality never makes the rest of the section vacuous.
func Tail(ctx *BuildContext, cands []Candidate) []bpl.Cmd {
	h := ctx.HavocVar()
	tail := make([]bpl.Cmd, 0, 2*len(cands)+1)
	for _, c := range cands {
		tail = append(tail,
			bpl.Havoc(h),
			bpl.Assert(bpl.Or(bpl.Id(h), c.Equality())),
		)
	}
	return append(tail, bpl.Assert(bpl.False()))
}

func countAsserts(cmds []bpl.Cmd) int {
	n := 0
	for _, c := range cmds {
		if _, ok := c.(bpl.AssertCmd); ok {
			n++
		}
	}
	return n
}

type enumerator struct {
	ctx      *BuildContext
	groups   []Group
	tail     []bpl.Cmd
	asserts  int
	picks    []Hypothesis
	used     map[string]bool
	sections []*Section
}

// Enumerate produces one section per combination of hypotheses that picks
// one hypothesis from each of depth groups, visiting groups in increasing
// index order. Combinations that use the same target operand twice are
// dropped. The obligation ceiling is checked before each section is
// created; reaching it aborts with UnsupportedScaleError.
//
// With no groups, or when every combination is dropped, the result is the
// single section that assumes nothing.
func Enumerate(ctx *BuildContext, groups []Group, tail []bpl.Cmd) ([]*Section, error) {
	depth := ctx.opts.Depth
	if depth <= 0 || depth > len(groups) {
		depth = len(groups)
	}

	e := &enumerator{
		ctx:     ctx,
		groups:  groups,
		tail:    tail,
		asserts: countAsserts(tail),
		used:    make(map[string]bool),
	}
	if err := e.walk(0, depth); err != nil {
		return nil, err
	}
	if len(e.sections) == 0 {
		if err := e.leaf(); err != nil {
			return nil, err
		}
	}
	return e.sections, nil
}

func (e *enumerator) walk(start, remaining int) error {
	if remaining == 0 {
		return e.leaf()
	}
	for i := start; i < len(e.groups); i++ {
		for _, h := range e.groups[i].Hypotheses {
			target := h.Target.String()
			// a repeated target operand cannot be repaired deeper in the tree
			if e.used[target] {
				continue
			}
			e.used[target] = true
			e.picks = append(e.picks, h)

			err := e.walk(i+1, remaining-1)

			e.picks = e.picks[:len(e.picks)-1]
			delete(e.used, target)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *enumerator) leaf() error {
	if err := e.ctx.charge(e.asserts); err != nil {
		return err
	}

	picks := make([]Hypothesis, len(e.picks))
	copy(picks, e.picks)

	cmds := make([]bpl.Cmd, 0, len(picks)+len(e.tail))
	for _, p := range picks {
		cmds = append(cmds, bpl.Assume(bpl.Id(p.Var)))
	}
	cmds = append(cmds, e.tail...)

	label := e.ctx.FreshLabel()
	e.sections = append(e.sections, &Section{
		Seq:   len(e.sections),
		Label: label,
		Picks: picks,
		Block: &bpl.Block{Label: label, Cmds: cmds, Transfer: bpl.Return()},
	})
	return nil
}
