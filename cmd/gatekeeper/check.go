package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forgeloop/gatekeeper/internal/dedup"
	"github.com/forgeloop/gatekeeper/internal/quality"
	"github.com/forgeloop/gatekeeper/internal/similarity"
	"github.com/forgeloop/gatekeeper/internal/types"
)

var (
	checkExistingPath string
	checkJSON         bool
)

var checkCmd = &cobra.Command{
	Use:   "check <candidates.json>",
	Short: "Run the duplicate filter over a batch of candidate items",
	Long: `Run the quality gate and duplicate filter over a JSON file of candidate
items, optionally against a JSON file of existing items, and report which
would be accepted. This is an offline audit; nothing is recorded.

Both files hold an array of {"title", "body", "labels"} objects.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()

		candidates := readItems(args[0])
		var existing []types.ProposedItem
		if checkExistingPath != "" {
			existing = readItems(checkExistingPath)
		}

		scorer, err := quality.NewScorer(cfg.Quality)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter, err := dedup.NewFilter(cfg.Dedup, scorer, &similarity.KeywordOverlapScorer{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		result, err := filter.CheckBatch(ctx, candidates, existing)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: batch check failed: %v\n", err)
			os.Exit(1)
		}

		if checkJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(data))
			return
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		for _, item := range result.Accepted {
			fmt.Printf("%s %s\n", green("✓"), item.Title)
		}
		for _, rej := range result.Rejections {
			detail := string(rej.Reason)
			switch {
			case rej.Reason == dedup.ReasonDuplicate && rej.WithinBatch:
				detail = fmt.Sprintf("duplicate within batch of %q", rej.MatchedExisting.Title)
			case rej.Reason == dedup.ReasonDuplicate:
				detail = fmt.Sprintf("duplicate of %q (combined %.2f)",
					rej.MatchedExisting.Title, rej.Similarity.Combined)
			case rej.Quality != nil:
				detail = fmt.Sprintf("quality %.2f below gate %.2f",
					rej.Quality.Overall, cfg.Quality.MinScore)
			}
			fmt.Printf("%s %s %s\n", red("✗"), rej.Candidate.Title, gray("("+detail+")"))
		}

		s := result.Stats
		fmt.Printf("\n%d candidates: %d accepted, %d duplicates (%d within batch), %d quality-rejected (%d comparisons, %dms)\n",
			s.TotalCandidates, s.AcceptedCount, s.DuplicateCount,
			s.WithinBatchDuplicateCount, s.QualityRejectedCount,
			s.ComparisonsMade, s.ProcessingTimeMs)
	},
}

// readItems loads a JSON array of proposed items, exiting on any error
func readItems(path string) []types.ProposedItem {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read %s: %v\n", path, err)
		os.Exit(1)
	}
	var items []types.ProposedItem
	if err := json.Unmarshal(data, &items); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to parse %s: %v\n", path, err)
		os.Exit(1)
	}
	for i := range items {
		if err := items[i].Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s item %d: %v\n", path, i, err)
			os.Exit(1)
		}
	}
	return items
}

func init() {
	checkCmd.Flags().StringVar(&checkExistingPath, "existing", "", "JSON file of existing items to check against")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "emit the full batch result as JSON")
	rootCmd.AddCommand(checkCmd)
}
