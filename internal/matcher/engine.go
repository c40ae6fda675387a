package matcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
	"github.com/gnoswap-labs/bplmatch/internal/checker"
)

// EngineOptions configures a matching run.
type EngineOptions struct {
	Options
	// WorkDir is where the combined program is written; empty means the
	// current directory.
	WorkDir string
	// KeepJoined keeps the combined program after the run.
	KeepJoined bool
}

// Engine runs the matching pipeline for a pair of trace files.
type Engine struct {
	opts    EngineOptions
	checker checker.Checker
	logger  *zap.Logger
}

func NewEngine(logger *zap.Logger, chk checker.Checker, opts EngineOptions) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{opts: opts, checker: chk, logger: logger}
}

// Load parses and resolves a trace file.
func Load(path string) (*bpl.Program, error) {
	prog, err := bpl.ParseFile(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	if err := bpl.Resolve(prog); err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	return prog, nil
}

// Build loads both traces and assembles the combined problem.
func (e *Engine) Build(queryPath, targetPath, prefix string) (*Problem, error) {
	query, err := Load(queryPath)
	if err != nil {
		return nil, err
	}
	target, err := Load(targetPath)
	if err != nil {
		return nil, err
	}
	return e.BuildPrograms(query, target, prefix)
}

// BuildPrograms assembles the combined problem from parsed traces. The
// query program is modified in place and becomes the combined program.
func (e *Engine) BuildPrograms(query, target *bpl.Program, prefix string) (*Problem, error) {
	j, err := Join(query, target, prefix)
	if err != nil {
		return nil, err
	}

	ctx := NewBuildContext(e.opts.Options, j.Program, &bpl.Program{Decls: []bpl.Decl{j.Target}})

	p, err := Assemble(ctx, j)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("assembled verification problem",
		zap.Int("candidates", len(p.Candidates)),
		zap.Int("hypotheses", len(p.Hypotheses)),
		zap.Int("groups", len(p.Groups)),
		zap.Int("sections", len(p.Sections)),
		zap.Int("obligations", ctx.Obligations()),
	)
	return p, nil
}

// JoinedPath is the file the combined program of query and target is
// written to: <query>.<target> in the work directory.
func (e *Engine) JoinedPath(queryPath, targetPath string) string {
	name := filepath.Base(queryPath) + "." + filepath.Base(targetPath)
	return filepath.Join(e.opts.WorkDir, name)
}

// Emit writes the combined program to path and reads it back. The returned
// program carries the source positions the checker will report against.
func (e *Engine) Emit(p *Problem, path string) (*bpl.Program, *bpl.Procedure, error) {
	if err := bpl.WriteFile(path, p.Program); err != nil {
		return nil, nil, fmt.Errorf("failed to write combined program: %w", err)
	}

	emitted, err := bpl.ParseFile(path)
	if err != nil {
		return nil, nil, &EmissionRoundTripError{Path: path, Err: err}
	}
	if err := bpl.Resolve(emitted); err != nil {
		return nil, nil, &EmissionRoundTripError{Path: path, Err: err}
	}
	impl := emitted.Procedure(p.Impl.Name)
	if impl == nil || !impl.HasBody {
		return nil, nil, &EmissionRoundTripError{Path: path, Err: fmt.Errorf("implementation %s not found", p.Impl.Name)}
	}
	return emitted, impl, nil
}

// Run executes the whole pipeline and selects the best section.
func (e *Engine) Run(ctx context.Context, queryPath, targetPath, prefix string) (*Result, error) {
	p, err := e.Build(queryPath, targetPath, prefix)
	if err != nil {
		return nil, err
	}

	path := e.JoinedPath(queryPath, targetPath)
	emitted, impl, err := e.Emit(p, path)
	if err != nil {
		return nil, err
	}
	if !e.opts.KeepJoined {
		defer func() {
			if err := os.Remove(path); err != nil {
				e.logger.Warn("failed to remove combined program", zap.String("file", path), zap.Error(err))
			}
		}()
	}

	report, err := e.checker.Check(ctx, path, emitted)
	if err != nil {
		return nil, err
	}

	res, err := Select(p, impl, report)
	if err != nil {
		return nil, err
	}

	for _, w := range res.Warnings {
		e.logger.Warn("inconsistent hypotheses",
			zap.String("section", w.Label),
			zap.Bool("selected", w.Seq == res.Best.Seq),
		)
	}
	e.logger.Debug("selected section",
		zap.String("section", res.Best.Label),
		zap.Int("proven", res.Proven),
		zap.Strings("matched", res.Matched),
	)
	return res, nil
}
