package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/bplmatch/internal/checker"
	"github.com/gnoswap-labs/bplmatch/internal/config"
	"github.com/gnoswap-labs/bplmatch/internal/matcher"
	"github.com/gnoswap-labs/bplmatch/internal/report"
	"github.com/gnoswap-labs/bplmatch/internal/symbolic"
	"github.com/gnoswap-labs/bplmatch/internal/watch"
)

var (
	backend     string
	depth       int
	keepJoined  bool
	watchInputs bool
	noCache     bool
)

var matchCmd = &cobra.Command{
	Use:   "match <query.bpl> <target.bpl> <prefix>",
	Short: "Find the best matching of query locals to target locals",
	Long: `Joins the two tracelets, enumerates consistent sets of parameter equalities,
checks every set in one combined program and reports the best-supported matching.
The target's identifiers are moved into the namespace <prefix>.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "error: expected <query.bpl> <target.bpl> <prefix>")
			os.Exit(1)
		}

		cfg := loadConfig()
		applyMatchFlags(cmd, &cfg)
		if err := cfg.Validate(); err != nil {
			logger.Fatal("Invalid configuration", zap.Error(err))
		}

		chk, err := newChecker(logger, cfg)
		if err != nil {
			logger.Fatal("Failed to initialize checker", zap.Error(err))
		}
		engine := matcher.NewEngine(logger, chk, engineOptions(cfg))

		if watchInputs {
			runWatch(logger, engine, args)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := runMatch(ctx, engine, args, os.Stdout, os.Stderr); err != nil {
			logger.Fatal("Matching failed", zap.Error(err))
		}
	},
}

func init() {
	matchCmd.Flags().StringVar(&backend, "backend", "", "Checker backend: boogie or z3 (default from config)")
	matchCmd.Flags().IntVar(&depth, "depth", 0, "Number of hypothesis groups each section picks from (0 = all)")
	matchCmd.Flags().BoolVar(&keepJoined, "keep", false, "Keep the combined program after checking")
	matchCmd.Flags().BoolVar(&watchInputs, "watch", false, "Re-run whenever an input file changes")
	matchCmd.Flags().BoolVar(&noCache, "no-cache", false, "Do not read or write cached checker reports")
}

// applyMatchFlags lets explicitly set flags override the configuration.
func applyMatchFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Checker.Backend = backend
	}
	if flags.Changed("depth") {
		cfg.Matcher.Depth = depth
	}
	if flags.Changed("keep") {
		cfg.KeepJoined = keepJoined
	}
	if flags.Changed("no-cache") && noCache {
		cfg.Cache.Enabled = false
	}
}

func engineOptions(cfg config.Config) matcher.EngineOptions {
	return matcher.EngineOptions{
		Options: matcher.Options{
			MaxObligations: cfg.Matcher.MaxObligations,
			Depth:          cfg.Matcher.Depth,
			HavocName:      cfg.Matcher.HavocName,
			EqPrefix:       cfg.Matcher.EqPrefix,
			SectionPrefix:  cfg.Matcher.SectionPrefix,
		},
		WorkDir:    cfg.WorkDir,
		KeepJoined: cfg.KeepJoined,
	}
}

func newChecker(logger *zap.Logger, cfg config.Config) (checker.Checker, error) {
	var (
		chk      checker.Checker
		identity string
	)
	switch cfg.Checker.Backend {
	case config.BackendBoogie:
		b := checker.NewBoogie(logger, checker.BoogieOptions{
			Command:    cfg.Checker.Command,
			ErrorLimit: cfg.Matcher.MaxObligations,
			TimeLimit:  cfg.Checker.TimeLimit,
			Args:       cfg.Checker.Args,
		})
		if err := b.Available(); err != nil {
			return nil, err
		}
		chk, identity = b, b.Identity()
	case config.BackendZ3:
		limit := time.Duration(cfg.Checker.TimeLimit) * time.Second
		newSolver := func() (symbolic.Solver, error) {
			return symbolic.NewZ3Solver(limit)
		}
		// fail early when built without z3
		s, err := newSolver()
		if err != nil {
			return nil, err
		}
		s.Close()
		chk = checker.NewInProcess(logger, newSolver, checker.InProcessOptions{
			Workers:  cfg.Workers,
			Progress: !color.NoColor,
		})
		identity = fmt.Sprintf("z3 timeLimit=%d", cfg.Checker.TimeLimit)
	default:
		return nil, fmt.Errorf("unknown checker backend %q", cfg.Checker.Backend)
	}

	if !cfg.Cache.Enabled {
		return chk, nil
	}
	cache, err := checker.NewCache(cfg.Cache.Dir, cfg.Cache.MaxAge)
	if err != nil {
		return nil, err
	}
	return checker.NewCached(logger, chk, identity, cache), nil
}

func runMatch(ctx context.Context, engine *matcher.Engine, args []string, stdout, stderr io.Writer) error {
	res, err := engine.Run(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprint(stderr, report.FormatScores(res))
	}
	fmt.Fprint(stderr, report.FormatWarnings(res))
	return report.Print(stdout, res)
}

func runWatch(logger *zap.Logger, engine *matcher.Engine, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	once := func(ctx context.Context) {
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := runMatch(runCtx, engine, args, os.Stdout, os.Stderr); err != nil {
			logger.Error("Matching failed", zap.Error(err))
		}
	}
	once(ctx)

	w, err := watch.New(logger, args[:2], watch.DefaultDebounce)
	if err != nil {
		logger.Fatal("Failed to watch inputs", zap.Error(err))
	}
	defer w.Close()

	logger.Info("Watching for changes", zap.Strings("files", args[:2]))
	if err := w.Run(ctx, func(ctx context.Context, _ string) { once(ctx) }); err != nil {
		logger.Error("Watch stopped", zap.Error(err))
	}
}
