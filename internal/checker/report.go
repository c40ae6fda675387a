package checker

import (
	"context"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

// Verdict is the outcome of a single assertion.
type Verdict int

const (
	// Proven means the checker did not flag the assertion.
	Proven Verdict = iota
	// Refuted means the assertion might not hold.
	Refuted
)

func (v Verdict) String() string {
	switch v {
	case Proven:
		return "proven"
	case Refuted:
		return "refuted"
	default:
		return "unknown"
	}
}

// Report holds the per-assertion verdicts of one checker run.
//
// Assertions are identified by source line: the printer writes one command
// per line, so a line determines the assertion.
type Report struct {
	Failed   map[int]bool
	Verified int
	Errors   int
	// Incomplete is set when the run gave up on part of the program (time
	// outs, resource limits). Every assertion is then treated as refuted.
	Incomplete bool
	Output     string
}

// VerdictFor returns the verdict of the assertion at pos.
func (r *Report) VerdictFor(pos bpl.Pos) Verdict {
	if r.Incomplete || r.Failed[pos.Line] {
		return Refuted
	}
	return Proven
}

// Checker discharges the assertions of an emitted program. path is the file
// the program was written to; prog is its parsed form.
type Checker interface {
	Check(ctx context.Context, path string, prog *bpl.Program) (*Report, error)
}
