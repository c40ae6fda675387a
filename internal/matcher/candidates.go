package matcher

import (
	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

// Candidate is an equality between a query local and a target local of the
// same type. Each candidate becomes one hard obligation in every section.
type Candidate struct {
	Query  bpl.Expr
	Target bpl.Expr
}

func (c Candidate) Equality() bpl.Expr {
	return bpl.Eq(c.Query, c.Target)
}

func (c Candidate) String() string {
	return c.Equality().String()
}

// Hypothesis is an equality between input parameters of the two traces,
// named by an auxiliary boolean that is set to its truth value on entry.
type Hypothesis struct {
	Var    string
	Query  bpl.Expr
	Target bpl.Expr
}

// Key is the printed query-side operand; hypotheses sharing it are
// mutually exclusive.
func (h Hypothesis) Key() string {
	return h.Query.String()
}

func (h Hypothesis) Equality() bpl.Expr {
	return bpl.Eq(h.Query, h.Target)
}

func (h Hypothesis) String() string {
	return h.Equality().String()
}

// Candidates pairs every query variable with every target variable of the
// same type, in query-major order. Pairs of different types are skipped.
func Candidates(query, target []bpl.Variable) []Candidate {
	var out []Candidate
	for _, q := range query {
		if q.Type == nil {
			continue
		}
		for _, t := range target {
			if bpl.TypeEqual(q.Type, t.Type) {
				out = append(out, Candidate{Query: bpl.Id(q.Name), Target: bpl.Id(t.Name)})
			}
		}
	}
	return out
}

// GenerateHypotheses creates one hypothesis per pair of same-typed input
// parameters. For each, the auxiliary variable is declared as a query local
// and `eq_N := q == t;` is placed at the top of the query entry block, in
// discovery order.
func GenerateHypotheses(ctx *BuildContext, query, target *bpl.Procedure) []Hypothesis {
	var hyps []Hypothesis
	for _, q := range query.InParams {
		for _, t := range target.InParams {
			if !bpl.TypeEqual(q.Type, t.Type) {
				continue
			}
			hyps = append(hyps, Hypothesis{
				Var:    ctx.FreshEq(),
				Query:  bpl.Id(q.Name),
				Target: bpl.Id(t.Name),
			})
		}
	}
	if len(hyps) == 0 {
		return nil
	}

	entry := query.Entry()
	if entry == nil {
		entry = &bpl.Block{Label: ctx.fresh("entry"), Transfer: bpl.Return()}
		query.Blocks = append(query.Blocks, entry)
	}
	assigns := make([]bpl.Cmd, 0, len(hyps)+len(entry.Cmds))
	for _, h := range hyps {
		assigns = append(assigns, bpl.Assign(h.Var, h.Equality()))
		query.Locals = append(query.Locals, bpl.Variable{Name: h.Var, Type: bpl.Bool})
	}
	entry.Cmds = append(assigns, entry.Cmds...)
	return hyps
}
