package checker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

// BoogieOptions configures the Boogie subprocess.
type BoogieOptions struct {
	Command string
	// ErrorLimit is passed as /errorLimit so every failing assertion of a
	// large combined program is reported, not just the first few.
	ErrorLimit int
	// TimeLimit is the per-implementation limit in seconds; 0 disables it.
	TimeLimit int
	Args      []string
}

// Boogie runs the Boogie verifier as a subprocess.
type Boogie struct {
	opts   BoogieOptions
	logger *zap.Logger
}

func NewBoogie(logger *zap.Logger, opts BoogieOptions) *Boogie {
	if opts.Command == "" {
		opts.Command = "boogie"
	}
	return &Boogie{opts: opts, logger: logger}
}

// Available reports whether the configured command can be found.
func (b *Boogie) Available() error {
	if _, err := exec.LookPath(b.opts.Command); err != nil {
		return &CheckerError{Command: b.opts.Command, Err: err}
	}
	return nil
}

// Identity describes the command line, used to key cached reports.
func (b *Boogie) Identity() string {
	return b.opts.Command + " " + strings.Join(b.args(""), " ")
}

func (b *Boogie) args(path string) []string {
	var args []string
	if path != "" {
		args = append(args, path)
	}
	if b.opts.ErrorLimit > 0 {
		args = append(args, "/errorLimit:"+strconv.Itoa(b.opts.ErrorLimit))
	}
	args = append(args, "/useArrayTheory")
	if b.opts.TimeLimit > 0 {
		args = append(args, "/timeLimit:"+strconv.Itoa(b.opts.TimeLimit))
	}
	return append(args, b.opts.Args...)
}

// Check runs Boogie on path. The program argument is unused: Boogie reads
// the emitted file.
func (b *Boogie) Check(ctx context.Context, path string, _ *bpl.Program) (*Report, error) {
	if err := b.Available(); err != nil {
		return nil, err
	}

	args := b.args(filepath.Base(path))
	cmd := exec.CommandContext(ctx, b.opts.Command, args...)
	cmd.Dir = filepath.Dir(path)

	// stdout is drained into memory while the process runs; Wait only
	// returns after the copy is complete.
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	b.logger.Debug("running checker",
		zap.String("command", b.opts.Command),
		zap.Strings("args", args),
	)

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, &CheckerError{Command: b.opts.Command, Output: stderr.String(), Err: ctx.Err()}
	}

	report, perr := ParseReport(stdout.String())
	if perr != nil {
		if err != nil {
			return nil, &CheckerError{
				Command: b.opts.Command,
				Output:  stdout.String() + stderr.String(),
				Err:     fmt.Errorf("%w (%v)", err, perr),
			}
		}
		return nil, perr
	}
	// Boogie exits non-zero whenever an assertion fails; that is an
	// ordinary outcome once the summary has been read.
	if err != nil {
		b.logger.Debug("checker exited with status", zap.Error(err))
	}

	if report.Incomplete {
		b.logger.Warn("checker did not finish every implementation; treating all assertions as refuted",
			zap.String("file", path),
		)
	}
	return report, nil
}
