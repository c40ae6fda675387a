package checker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
	"github.com/gnoswap-labs/bplmatch/internal/symbolic"
)

// InProcessOptions configures the in-process checker.
type InProcessOptions struct {
	Workers  int
	MaxPaths int
	Progress bool
}

// InProcess discharges the assertions of the emitted program with a
// solver running inside this process, one solver per worker.
type InProcess struct {
	newSolver symbolic.SolverFactory
	opts      InProcessOptions
	logger    *zap.Logger
}

func NewInProcess(logger *zap.Logger, newSolver symbolic.SolverFactory, opts InProcessOptions) *InProcess {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &InProcess{newSolver: newSolver, opts: opts, logger: logger}
}

func (c *InProcess) Check(ctx context.Context, path string, prog *bpl.Program) (*Report, error) {
	impls := prog.Implementations()
	if len(impls) != 1 {
		return nil, &CheckerError{Command: "in-process", Err: fmt.Errorf("%s: expected one implementation, found %d", path, len(impls))}
	}

	obligations, err := symbolic.Execute(prog, impls[0], c.opts.MaxPaths)
	if err != nil {
		return nil, &CheckerError{Command: "in-process", Err: err}
	}

	var bar *progressbar.ProgressBar
	if c.opts.Progress {
		bar = progressbar.NewOptions(len(obligations),
			progressbar.OptionSetDescription("checking"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	jobs := make(chan symbolic.Obligation)
	var (
		mu     sync.Mutex
		failed = make(map[int]bool)
		lines  = make(map[int]bool)
	)
	for _, ob := range obligations {
		lines[ob.Pos.Line] = true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for _, ob := range obligations {
			select {
			case jobs <- ob:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < c.opts.Workers; i++ {
		g.Go(func() error {
			solver, err := c.newSolver()
			if err != nil {
				return err
			}
			defer solver.Close()

			for ob := range jobs {
				valid, err := symbolic.Discharge(gctx, solver, ob)
				switch {
				case err == nil:
				case errors.Is(err, symbolic.ErrUnsupported), errors.Is(err, symbolic.ErrUnknown):
					c.logger.Debug("obligation not decided",
						zap.Stringer("pos", ob.Pos),
						zap.Error(err),
					)
				default:
					return err
				}
				if !valid {
					mu.Lock()
					failed[ob.Pos.Line] = true
					mu.Unlock()
				}
				if bar != nil {
					_ = bar.Add(1)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &CheckerError{Command: "in-process", Err: err}
	}

	report := &Report{Failed: failed, Errors: len(failed), Verified: len(lines) - len(failed)}
	if ce := c.logger.Check(zap.DebugLevel, "in-process check finished"); ce != nil {
		refuted := make([]int, 0, len(failed))
		for l := range failed {
			refuted = append(refuted, l)
		}
		sort.Ints(refuted)
		ce.Write(zap.Int("obligations", len(obligations)), zap.Ints("refuted_lines", refuted))
	}
	return report, nil
}
