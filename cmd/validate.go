package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/beaker/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load and validate the effective configuration, including all defaults,
environment variables, and flag overrides.

Validation covers the environment settings (project tag, Python version,
channels), the dependency catalog (no duplicates, injection-safe names),
the step scripts and timing thresholds, and the failure policies.

Examples:
  beaker validate                 # Validate and show the effective config
  beaker validate --format yaml   # Print the effective config as YAML
  beaker validate --quiet         # Exit status only`,
	RunE: runValidate,
}

var validateOutput OutputFlags

func init() {
	rootCmd.AddCommand(validateCmd)

	validateOutput.Bind(validateCmd.Flags())
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	if validateOutput.Quiet {
		return nil
	}

	if validateOutput.Structured() {
		return validateOutput.Render(cfg)
	}

	fmt.Println("✓ Configuration valid")
	fmt.Printf("  Environment: %s\n", cfg.Environment.EnvName())
	fmt.Printf("  Platform:    %s\n", cfg.Environment.Platform)
	if channels := cfg.Environment.ChannelsFor(cfg.Environment.Platform); len(channels) > 0 {
		fmt.Printf("  Channels:    %v\n", channels)
	} else {
		fmt.Println("  Channels:    (none on this platform)")
	}
	fmt.Printf("  Catalog:     %d packages\n", len(cfg.Catalog))
	fmt.Printf("  Tests:       %s (timer ok=%.0fs warning=%.0fs)\n",
		cfg.Steps.TestPackage, cfg.Steps.TimerOK, cfg.Steps.TimerWarning)
	fmt.Printf("  Upload:      %t\n", cfg.Coverage.Upload)
	return nil
}
