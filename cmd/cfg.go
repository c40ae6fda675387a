package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/bplmatch/internal/analysis/cfg"
	"github.com/gnoswap-labs/bplmatch/internal/matcher"
)

// variable for flags
var output string

var cfgCmd = &cobra.Command{
	Use:   "cfg <query.bpl> <target.bpl> <prefix>",
	Short: "Print the control flow graph of the combined program",
	Long: `Outputs the block graph of the combined implementation in dot format or generates a GraphViz file.
Example) bplmatch cfg -o joined.svg q.bpl t.bpl v2`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		engine := matcher.NewEngine(logger, nil, engineOptions(loadConfig()))

		var buf strings.Builder
		if err := runCFG(engine, args, &buf); err != nil {
			logger.Fatal("Failed to build combined program", zap.Error(err))
		}

		if output == "" {
			fmt.Print(buf.String())
			return
		}
		if err := cfg.RenderToGraphVizFile([]byte(buf.String()), output); err != nil {
			logger.Fatal("Failed to render CFG to GraphViz file", zap.Error(err))
		}
		fmt.Printf("GraphViz file created: %s\n", output)
	},
}

func init() {
	cfgCmd.Flags().StringVarP(&output, "output", "o", "", "Output path for rendered GraphViz file")
}

func runCFG(engine *matcher.Engine, args []string, w io.Writer) error {
	p, err := engine.Build(args[0], args[1], args[2])
	if err != nil {
		return err
	}
	g := cfg.FromProcedure(p.Impl)
	if _, err := g.TopoOrder(); err != nil {
		logger.Warn("combined program is not acyclic", zap.Error(err))
	}
	g.PrintDot(w)
	return nil
}
