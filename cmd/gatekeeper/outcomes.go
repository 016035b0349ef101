package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var outcomesLimit int

var outcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "Show recent outcome ledger entries",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		store := openStore(cfg)
		defer store.Close()

		records, err := store.Recent(ctx, outcomesLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read ledger: %v\n", err)
			os.Exit(1)
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		if len(records) == 0 {
			fmt.Printf("%s\n", gray("No outcomes recorded yet"))
			return
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"Item", "Title", "Category", "Status", "Created", "Resolve (min)", "Files"})

		for _, r := range records {
			resolveMin := "-"
			if r.ResolveMinutes != nil {
				resolveMin = strconv.Itoa(*r.ResolveMinutes)
			}
			title := r.Title
			if len(title) > 48 {
				title = title[:45] + "..."
			}
			table.Append([]string{
				strconv.Itoa(r.ItemKey),
				title,
				string(r.Category),
				string(r.Status),
				r.CreatedAt.Format("2006-01-02 15:04"),
				resolveMin,
				strconv.Itoa(r.FilesChanged),
			})
		}

		if err := table.Render(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to render table: %v\n", err)
			os.Exit(1)
		}

		stats, err := store.GetOverallStats(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read stats: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\n%d records total, %.0f%% success, %.0f%% merged\n",
			stats.TotalRecords, stats.SuccessRate*100, stats.MergeRate*100)
	},
}

func init() {
	outcomesCmd.Flags().IntVar(&outcomesLimit, "limit", 20, "number of records to show")
	rootCmd.AddCommand(outcomesCmd)
}
