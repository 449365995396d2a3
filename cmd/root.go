package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akeen90/nutrasafe-beta-sub013/internal/config"
	"github.com/akeen90/nutrasafe-beta-sub013/internal/engine"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nutrasafe",
	Short: "Embedded food-nutrition lookup engine",
	Long:  "Serves free-text food search, barcode lookup, and identifier lookup against the locally provisioned nutrition dataset.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newEngine builds the query engine for a command invocation. The caller owns
// Close.
func newEngine() *engine.Engine {
	return engine.New(cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
