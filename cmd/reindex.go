package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the full-text shadow index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng := newEngine()
		defer eng.Close()

		if err := eng.RebuildIndex(ctx); err != nil {
			return err
		}

		n, err := eng.IndexSize(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("shadow index rebuilt", zap.Int("rows", n))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
