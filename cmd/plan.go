package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/beaker/internal/conda"
	"github.com/conneroisu/beaker/internal/config"
	"github.com/conneroisu/beaker/internal/pipeline"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the ordered step plan without running it",
	Long: `Show the ordered pipeline step plan with each step's failure policy.

The plan reflects the effective configuration, so platform conditionals and
upload settings are already resolved: a macos plan shows no channel setup,
and a run with upload disabled shows no upload step.

Examples:
  beaker plan                     # Table of steps and policies
  beaker plan --format json       # Machine-readable plan
  beaker plan --skip-upload       # Plan without the upload step`,
	RunE: runPlan,
}

var (
	planSkipUpload bool
	planOutput     OutputFlags
)

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().BoolVar(&planSkipUpload, "skip-upload", false, "Plan without the coverage upload step")
	planOutput.Bind(planCmd.Flags())
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger()
	client := conda.NewClient(cfg.Environment.CondaBin, conda.NewExecRunner(logger), logger)
	builder := pipeline.NewBuilder(cfg, client, logger)
	builder.SkipUpload = planSkipUpload

	plan := builder.Build().Plan()

	if planOutput.Structured() {
		return planOutput.Render(plan)
	}

	fmt.Printf("Pipeline plan for %s (%s):\n\n", cfg.Environment.EnvName(), cfg.Environment.Platform)
	printPlan(plan)
	return nil
}

// stepTitle renders a step name for display ("provision-clear" becomes
// "Provision Clear").
var stepTitle = cases.Title(language.English)

func printPlan(plan []pipeline.PlanEntry) {
	for i, entry := range plan {
		display := stepTitle.String(strings.ReplaceAll(entry.Name, "-", " "))
		note := ""
		if entry.AlwaysRun {
			note = " (always runs)"
		}
		fmt.Printf("  %d. %-18s on-failure=%s%s\n", i+1, display, entry.Policy, note)
	}
}
