package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/akeen90/nutrasafe-beta-sub013/internal/model"
)

var barcodeCmd = &cobra.Command{
	Use:   "barcode <code>",
	Short: "Exact barcode lookup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := newEngine()
		defer eng.Close()

		result, err := eng.SearchByBarcode(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

var foodCmd = &cobra.Command{
	Use:   "food <id>",
	Short: "Exact identifier lookup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := newEngine()
		defer eng.Close()

		result, err := eng.SearchByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

func printResult(result *model.FoodSearchResult) error {
	if result == nil {
		_, err := os.Stdout.WriteString("null\n")
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	rootCmd.AddCommand(barcodeCmd)
	rootCmd.AddCommand(foodCmd)
}
