package matcher

import (
	"fmt"
	"sort"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
	"github.com/gnoswap-labs/bplmatch/internal/checker"
)

// VerdictSource answers whether the assertion at a position was proven.
type VerdictSource interface {
	VerdictFor(pos bpl.Pos) checker.Verdict
}

// Match is a provable obligation `q == t` of the winning section.
type Match struct {
	Query  bpl.Expr
	Target bpl.Expr
}

func (m Match) String() string {
	return bpl.Eq(m.Query, m.Target).String()
}

// Score is the outcome of one section.
type Score struct {
	Section *Section
	Proven  int
	Matches []Match
	// Inconsistent is set when the final `assert false` was not refuted.
	Inconsistent bool
}

// Result is the best-supported section and the matching it implies.
type Result struct {
	Best        *Section
	Proven      int
	Assumptions []Hypothesis
	Matches     []Match
	// Matched holds the distinct target-side operands of Matches, sorted.
	Matched     []string
	QueryLocals int
	Percentage  int
	Scores      []Score
	Warnings    []InconsistentHypothesisWarning
	// Suspect is set when the best section itself is inconsistent.
	Suspect bool
}

// Select scores every section of p against the verdicts for the emitted
// implementation and picks the one with the most proven assertions. Ties go
// to the lowest sequence number.
func Select(p *Problem, emitted *bpl.Procedure, verdicts VerdictSource) (*Result, error) {
	if len(p.Sections) == 0 {
		return nil, fmt.Errorf("no sections to score")
	}

	res := &Result{QueryLocals: p.QueryLocals}
	best := -1
	for _, s := range p.Sections {
		b := emitted.Block(s.Label)
		if b == nil {
			return nil, fmt.Errorf("section %s missing from emitted program", s.Label)
		}
		score := scoreBlock(s, b, p.Havoc, verdicts)
		res.Scores = append(res.Scores, score)

		if score.Inconsistent {
			res.Warnings = append(res.Warnings, InconsistentHypothesisWarning{Seq: s.Seq, Label: s.Label})
		}
		if best < 0 || score.Proven > res.Scores[best].Proven {
			best = len(res.Scores) - 1
		}
	}

	win := res.Scores[best]
	res.Best = win.Section
	res.Proven = win.Proven
	res.Assumptions = win.Section.Picks
	res.Matches = win.Matches
	res.Suspect = win.Inconsistent

	seen := make(map[string]bool)
	for _, m := range win.Matches {
		name := m.Target.String()
		if !seen[name] {
			seen[name] = true
			res.Matched = append(res.Matched, name)
		}
	}
	sort.Strings(res.Matched)
	res.Percentage = Percentage(len(res.Matched), p.QueryLocals)
	return res, nil
}

func scoreBlock(s *Section, b *bpl.Block, havoc string, verdicts VerdictSource) Score {
	score := Score{Section: s}
	for _, c := range b.Cmds {
		a, ok := c.(bpl.AssertCmd)
		if !ok || verdicts.VerdictFor(a.Pos) != checker.Proven {
			continue
		}
		score.Proven++
		if lit, ok := a.Expr.(bpl.BoolLit); ok && !lit.Val {
			score.Inconsistent = true
			continue
		}
		if m, ok := guardedEquality(a.Expr, havoc); ok {
			score.Matches = append(score.Matches, m)
		}
	}
	return score
}

// guardedEquality recognizes `h || q == t`.
func guardedEquality(e bpl.Expr, havoc string) (Match, bool) {
	or, ok := e.(bpl.BinaryExpr)
	if !ok || or.Op != bpl.OpOr {
		return Match{}, false
	}
	if id, ok := or.Left.(bpl.Ident); !ok || id.Name != havoc {
		return Match{}, false
	}
	eq, ok := or.Right.(bpl.BinaryExpr)
	if !ok || eq.Op != bpl.OpEq {
		return Match{}, false
	}
	return Match{Query: eq.Left, Target: eq.Right}, true
}

// Percentage is matched*100/locals with integer division, capped at 100.
// A query without locals scores 0.
func Percentage(matched, locals int) int {
	if locals <= 0 {
		return 0
	}
	return min(100, matched*100/locals)
}
