// Command gatekeeper is the administrative CLI for the generation
// governance state kept in a repository checkout: admission windows,
// cooldowns, the outcome ledger, and generation guidance. It performs no
// generation itself.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forgeloop/gatekeeper/internal/admission"
	"github.com/forgeloop/gatekeeper/internal/config"
	"github.com/forgeloop/gatekeeper/internal/outcomes"
)

var rootCmd = &cobra.Command{
	Use:   "gatekeeper",
	Short: "Inspect and administer generation governance state",
	Long: `Gatekeeper filters AI-proposed work items for novelty and quality,
rate-limits generation attempts, and tracks outcomes to bias future
generation toward categories that historically succeed.

This CLI inspects and administers that state. It never generates anything
and never talks to a tracker.`,
}

func init() {
	rootCmd.PersistentFlags().String("config", "gatekeeper.yaml", "path to the config file")
	rootCmd.PersistentFlags().String("state-dir", "", "directory holding admission state and the outcome ledger (overrides config paths)")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("state-dir", rootCmd.PersistentFlags().Lookup("state-dir"))
}

// loadConfig resolves the effective configuration for a command run
func loadConfig() *config.Config {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if dir := viper.GetString("state-dir"); dir != "" {
		cfg.Admission.StatePath = filepath.Join(dir, "admission_state.json")
		cfg.LedgerPath = filepath.Join(dir, "outcomes.db")
	}
	return cfg
}

func openController(cfg *config.Config) *admission.Controller {
	controller, err := admission.NewController(cfg.Admission)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open admission state: %v\n", err)
		os.Exit(1)
	}
	return controller
}

func openStore(cfg *config.Config) *outcomes.Store {
	store, err := outcomes.New(cfg.LedgerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open outcome ledger: %v\n", err)
		os.Exit(1)
	}
	if err := store.SetMetricsConfig(cfg.Metrics); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return store
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
