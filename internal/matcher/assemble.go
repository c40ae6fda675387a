package matcher

import (
	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

// Problem is the combined verification problem for one run.
type Problem struct {
	Program    *bpl.Program
	Impl       *bpl.Procedure
	Candidates []Candidate
	Hypotheses []Hypothesis
	Groups     []Group
	Sections   []*Section
	Havoc      string
	// QueryLocals is the number of locals the query trace declared before
	// any auxiliary variable was added.
	QueryLocals int
}

// Splice joins the target body to the query body and branches into the
// sections. Every query exit jumps to the target entry; every target exit
// jumps to all sections at once. The target parameters become parameters of
// the combined procedure and its outputs become locals. Modifies clauses
// are recomputed afterwards since target globals are now in play.
func Splice(ctx *BuildContext, j *Joined, sections []*Section) {
	q, t := j.Query, j.Target

	q.InParams = append(q.InParams, t.InParams...)
	q.Locals = append(q.Locals, t.OutParams...)
	q.Locals = append(q.Locals, t.Locals...)
	q.Locals = append(q.Locals, bpl.Variable{Name: ctx.HavocVar(), Type: bpl.Bool})

	labels := make([]string, len(sections))
	for i, s := range sections {
		labels[i] = s.Label
	}
	// an empty target body falls straight through to the sections
	queryExit := labels
	if entry := t.Entry(); entry != nil {
		queryExit = []string{entry.Label}
	}
	redirectReturns(q.Blocks, queryExit)
	redirectReturns(t.Blocks, labels)

	q.Blocks = append(q.Blocks, t.Blocks...)
	for _, s := range sections {
		q.Blocks = append(q.Blocks, s.Block)
	}

	bpl.InferModifies(j.Program)
}

func redirectReturns(blocks []*bpl.Block, labels []string) {
	for _, b := range blocks {
		if _, ok := b.Transfer.(bpl.ReturnCmd); ok {
			b.Transfer = bpl.Goto(labels...)
		}
	}
}

// Assemble runs candidate generation, grouping, enumeration and splicing on
// a joined pair of traces.
func Assemble(ctx *BuildContext, j *Joined) (*Problem, error) {
	queryLocals := len(j.Query.Locals)

	cands := Candidates(j.Query.Locals, j.Target.Locals)
	hyps := GenerateHypotheses(ctx, j.Query, j.Target)
	groups := GroupHypotheses(hyps)

	sections, err := Enumerate(ctx, groups, Tail(ctx, cands))
	if err != nil {
		return nil, err
	}
	Splice(ctx, j, sections)

	return &Problem{
		Program:     j.Program,
		Impl:        j.Query,
		Candidates:  cands,
		Hypotheses:  hyps,
		Groups:      groups,
		Sections:    sections,
		Havoc:       ctx.HavocVar(),
		QueryLocals: queryLocals,
	}, nil
}
