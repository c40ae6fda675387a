package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/bplmatch/internal/config"
)

var forceInit bool

// initCmd: bplmatch init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long: `Writes the default checker, matcher and cache settings to the configuration file
(see --config). An existing file is left alone unless --force is given.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, err := writeDefaultConfig(cfgFile, forceInit)
		if err != nil {
			logger.Error("Error writing configuration file", zap.String("file", path), zap.Error(err))
			return
		}
		fmt.Printf("Configuration file written: %s\n", path)
	},
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing configuration file")
}

var errConfigExists = errors.New("configuration file already exists (use --force to overwrite)")

func writeDefaultConfig(path string, force bool) (string, error) {
	if path == "" {
		path = config.DefaultFile
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, errConfigExists
		}
	}
	return path, config.Write(path, config.Default())
}
