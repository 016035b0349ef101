package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resetCooldownCmd = &cobra.Command{
	Use:   "reset-cooldown",
	Short: "Clear an active cooldown",
	Long: `Clear an active cooldown so generation attempts are admitted again.

Cooldowns trigger automatically when most recent proposals were rejected as
duplicates or low quality, which usually means the generator is misbehaving.
Clearing the cooldown does not fix the generator; use this after addressing
the underlying cause.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		controller := openController(cfg)
		defer controller.Close()

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		stats := controller.GetStatistics()
		if !stats.CooldownActive {
			fmt.Printf("%s\n", gray("No cooldown is active"))
			return
		}

		if err := controller.ResetCooldown(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to reset cooldown: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Cooldown cleared\n", green("✓"))
	},
}

func init() {
	rootCmd.AddCommand(resetCooldownCmd)
}
