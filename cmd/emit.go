package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
	"github.com/gnoswap-labs/bplmatch/internal/matcher"
)

var emitOutput string

var emitCmd = &cobra.Command{
	Use:   "emit <query.bpl> <target.bpl> <prefix>",
	Short: "Print the combined program without checking it",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		engine := matcher.NewEngine(logger, nil, engineOptions(cfg))

		var w io.Writer = os.Stdout
		if emitOutput != "" {
			f, err := os.Create(emitOutput)
			if err != nil {
				logger.Fatal("Failed to create output file", zap.String("file", emitOutput), zap.Error(err))
			}
			defer f.Close()
			w = f
		}

		if err := runEmit(engine, args, w); err != nil {
			logger.Fatal("Failed to build combined program", zap.Error(err))
		}
		if emitOutput != "" {
			fmt.Printf("Combined program written to: %s\n", emitOutput)
		}
	},
}

func init() {
	emitCmd.Flags().StringVarP(&emitOutput, "output", "o", "", "Write the combined program to this file")
}

func runEmit(engine *matcher.Engine, args []string, w io.Writer) error {
	p, err := engine.Build(args[0], args[1], args[2])
	if err != nil {
		return err
	}
	return bpl.Fprint(w, p.Program)
}
