package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	searchLimit int
	searchDeep  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Ranked free-text food search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng := newEngine()
		defer eng.Close()

		search := eng.Search
		if searchDeep {
			// Full-text match over the shadow index, reaching ingredient text
			// the ranked path does not cover.
			search = eng.DeepSearch
		}

		results, err := search(ctx, args[0], searchLimit)
		if err != nil {
			return err
		}

		zap.L().Info("search complete",
			zap.String("query", args[0]),
			zap.Int("results", len(results)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results (default from config)")
	searchCmd.Flags().BoolVar(&searchDeep, "deep", false, "match against the full-text index (includes ingredient text)")
	rootCmd.AddCommand(searchCmd)
}
