package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show admission windows, rejection rates, and cooldown state",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		controller := openController(cfg)
		defer controller.Close()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Gatekeeper Status ==="))

		stats := controller.GetStatistics()

		fmt.Printf("%s\n", yellow("Admission Windows:"))
		fmt.Printf("  Hourly: %d accepted, %d remaining (cap %d)\n",
			stats.HourlyAccepted, stats.HourlyRemaining, cfg.Admission.MaxPerHour)
		fmt.Printf("  Daily:  %d accepted, %d remaining (cap %d)\n",
			stats.DailyAccepted, stats.DailyRemaining, cfg.Admission.MaxPerDay)
		if stats.LastAttemptAt != nil {
			fmt.Printf("  Last attempt: %s (%v ago)\n",
				stats.LastAttemptAt.Format("2006-01-02 15:04:05"),
				time.Since(*stats.LastAttemptAt).Round(time.Second))
		} else {
			fmt.Printf("  %s\n", gray("No attempts recorded"))
		}
		fmt.Println()

		fmt.Printf("%s\n", yellow("Rejection Rates (last hour):"))
		fmt.Printf("  Duplicates:       %.0f%% (cooldown at %.0f%%)\n",
			stats.DuplicateRate*100, cfg.Admission.MaxDuplicateRate*100)
		fmt.Printf("  Quality rejects:  %.0f%% (cooldown at %.0f%%)\n",
			stats.QualityRejectRate*100, cfg.Admission.MaxQualityRejectRate*100)
		fmt.Println()

		fmt.Printf("%s\n", yellow("Cooldown:"))
		if stats.CooldownActive && stats.CooldownUntil != nil {
			remaining := time.Until(*stats.CooldownUntil).Round(time.Minute)
			fmt.Printf("  %s active until %s (%v remaining)\n",
				red("●"), stats.CooldownUntil.Format("15:04:05"), remaining)
			fmt.Printf("  Run %s to clear it\n", cyan("gatekeeper reset-cooldown"))
		} else {
			fmt.Printf("  %s none\n", green("✓"))
		}

		admitted, reason := controller.CanAdmit()
		fmt.Println()
		if admitted {
			fmt.Printf("Next attempt: %s\n", green("would be admitted"))
		} else {
			fmt.Printf("Next attempt: %s (%s)\n", red("would be denied"), reason)
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
