package matcher

import (
	"strconv"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

// DefaultMaxObligations is the ceiling on proof obligations across all sections.
const DefaultMaxObligations = 10000

// Options tunes the search.
type Options struct {
	// MaxObligations bounds the total number of assertions emitted into
	// sections. Reaching it aborts the run.
	MaxObligations int
	// Depth is the number of groups each section picks from. Zero means
	// every group.
	Depth int

	HavocName     string
	EqPrefix      string
	SectionPrefix string
}

func DefaultOptions() Options {
	return Options{
		MaxObligations: DefaultMaxObligations,
		HavocName:      "h",
		EqPrefix:       "eq",
		SectionPrefix:  "section",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxObligations <= 0 {
		o.MaxObligations = d.MaxObligations
	}
	if o.HavocName == "" {
		o.HavocName = d.HavocName
	}
	if o.EqPrefix == "" {
		o.EqPrefix = d.EqPrefix
	}
	if o.SectionPrefix == "" {
		o.SectionPrefix = d.SectionPrefix
	}
	return o
}

// BuildContext carries the mutable state of one run: fresh-name counters
// and the running obligation count. It is threaded through every stage
// instead of living in globals.
type BuildContext struct {
	opts        Options
	taken       map[string]bool
	eqCount     int
	labelCount  int
	obligations int
	havoc       string
}

// NewBuildContext creates a context whose fresh names avoid every name
// declared in progs.
func NewBuildContext(opts Options, progs ...*bpl.Program) *BuildContext {
	ctx := &BuildContext{
		opts:  opts.withDefaults(),
		taken: make(map[string]bool),
	}
	for _, prog := range progs {
		ctx.reserveDecls(prog.Decls)
	}
	ctx.havoc = ctx.fresh(ctx.opts.HavocName)
	return ctx
}

func (c *BuildContext) reserveDecls(decls []bpl.Decl) {
	taken := c.taken
	for _, d := range decls {
		taken[d.DeclName()] = true
		proc, ok := d.(*bpl.Procedure)
		if !ok {
			continue
		}
		for _, vs := range [][]bpl.Variable{proc.InParams, proc.OutParams, proc.Locals} {
			for _, v := range vs {
				taken[v.Name] = true
			}
		}
		for _, b := range proc.Blocks {
			taken[b.Label] = true
		}
	}
}

// Reserve marks names as taken, e.g. the identifiers of a trace that is
// not part of the program yet.
func (c *BuildContext) Reserve(names ...string) {
	for _, n := range names {
		c.taken[n] = true
	}
}

// fresh returns base, or base_N for the smallest N that is free.
func (c *BuildContext) fresh(base string) string {
	name := base
	for i := 1; c.taken[name]; i++ {
		name = base + "_" + strconv.Itoa(i)
	}
	c.taken[name] = true
	return name
}

func (c *BuildContext) numbered(prefix string, counter *int) string {
	for {
		name := prefix + "_" + strconv.Itoa(*counter)
		*counter++
		if !c.taken[name] {
			c.taken[name] = true
			return name
		}
	}
}

// FreshEq returns the next auxiliary hypothesis variable, eq_0, eq_1, ...
func (c *BuildContext) FreshEq() string {
	return c.numbered(c.opts.EqPrefix, &c.eqCount)
}

// FreshLabel returns the next section label, section_0, section_1, ...
func (c *BuildContext) FreshLabel() string {
	return c.numbered(c.opts.SectionPrefix, &c.labelCount)
}

// HavocVar is the name of the unconstrained boolean guarding obligations.
func (c *BuildContext) HavocVar() string {
	return c.havoc
}

// Obligations returns the number of assertions emitted so far.
func (c *BuildContext) Obligations() int {
	return c.obligations
}

// charge records n more obligations, failing when the ceiling would be exceeded.
func (c *BuildContext) charge(n int) error {
	if c.obligations+n > c.opts.MaxObligations {
		return &UnsupportedScaleError{Limit: c.opts.MaxObligations, Reached: c.obligations + n}
	}
	c.obligations += n
	return nil
}
