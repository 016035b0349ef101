package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the outcome ledger as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		store := openStore(cfg)
		defer store.Close()

		out := os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to create %s: %v\n", exportOutput, err)
				os.Exit(1)
			}
			defer f.Close()
			out = f
		}

		if err := store.ExportJSON(ctx, out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: export failed: %v\n", err)
			os.Exit(1)
		}
		if exportOutput != "" {
			fmt.Printf("Ledger exported to %s\n", exportOutput)
		} else {
			fmt.Println()
		}
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
