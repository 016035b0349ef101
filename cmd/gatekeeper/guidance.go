package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forgeloop/gatekeeper/internal/feedback"
	"github.com/forgeloop/gatekeeper/internal/types"
)

var (
	guidanceSinceDays  int
	guidanceMinSamples int
)

var guidanceCmd = &cobra.Command{
	Use:   "guidance",
	Short: "Show generation guidance derived from outcome history",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		store := openStore(cfg)
		defer store.Close()

		analyzer, err := feedback.NewAnalyzer(store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		since := time.Duration(guidanceSinceDays) * 24 * time.Hour
		g, err := analyzer.Guidance(ctx, since, guidanceMinSamples)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to compute guidance: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Generation Guidance ==="))
		fmt.Printf("%s %s\n\n", yellow("Summary:"), g.FocusSummary)

		if len(g.Distribution) > 0 {
			fmt.Printf("%s\n", yellow("Target Distribution:"))
			categories := make([]string, 0, len(g.Distribution))
			for c := range g.Distribution {
				categories = append(categories, string(c))
			}
			sort.Slice(categories, func(i, j int) bool {
				return g.Distribution[types.Category(categories[i])] > g.Distribution[types.Category(categories[j])]
			})
			for _, name := range categories {
				share := g.Distribution[types.Category(name)]
				marker := gray("·")
				for _, c := range g.HighPriority {
					if string(c) == name {
						marker = green("▲")
					}
				}
				for _, c := range g.LowPriority {
					if string(c) == name {
						marker = red("▼")
					}
				}
				fmt.Printf("  %s %-14s %5.1f%%\n", marker, name, share*100)
			}
			fmt.Println()
		}

		fmt.Printf("%s\n  %s\n\n", yellow("Adjustment:"), g.AdjustmentText)
	},
}

func init() {
	guidanceCmd.Flags().IntVar(&guidanceSinceDays, "since-days", 0, "only consider outcomes from the last N days (0 = all history)")
	guidanceCmd.Flags().IntVar(&guidanceMinSamples, "min-samples", feedback.DefaultMinSamples, "minimum outcomes per category before acting on its rate")
	rootCmd.AddCommand(guidanceCmd)
}
