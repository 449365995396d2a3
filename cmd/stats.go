package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Dataset statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng := newEngine()
		defer eng.Close()

		st, err := eng.Stats(ctx)
		if err != nil {
			return err
		}

		indexed, err := eng.IndexSize(ctx)
		if err != nil {
			zap.L().Warn("shadow index size unavailable", zap.Error(err))
		}

		out := struct {
			Total        int `json:"total"`
			WithBarcodes int `json:"with_barcodes"`
			Verified     int `json:"verified"`
			Indexed      int `json:"indexed"`
		}{st.Total, st.WithBarcodes, st.Verified, indexed}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
