package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/beaker/internal/conda"
	"github.com/conneroisu/beaker/internal/config"
	"github.com/conneroisu/beaker/internal/pipeline"
	"github.com/conneroisu/beaker/internal/stream"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full CI pipeline",
	Long: `Run the full CI pipeline: clear and recreate the conda environment,
install the dependency catalog, lint, build, test under coverage with
per-test timing thresholds, combine and report coverage, upload it, and
tear the environment down.

Teardown always runs, even after a failure. The first non-tolerated step
failure becomes the process exit status.

Examples:
  beaker run                            # Full pipeline with configured settings
  beaker run --python 3.6               # Override the Python version
  beaker run --platform macos           # Override the platform label
  beaker run --skip-upload              # Skip the coveralls upload step
  beaker run --dry-run                  # Show the step plan without running
  beaker run --follow :7331             # Serve live step events over websocket
  beaker run --report run.json          # Write the run report to a file`,
	RunE: runPipeline,
}

var (
	runPython     string
	runPlatform   string
	runSkipUpload bool
	runDryRun     bool
	runFollow     string
	runReportPath string
	runOutput     OutputFlags
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runPython, "python", "", "Python version for the environment (overrides config)")
	runCmd.Flags().StringVar(&runPlatform, "platform", "", "Platform label: linux or macos (overrides config)")
	runCmd.Flags().BoolVar(&runSkipUpload, "skip-upload", false, "Skip the coverage upload step")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Show the step plan without executing")
	runCmd.Flags().StringVar(&runFollow, "follow", "", "Serve live step events over websocket on this address (e.g. :7331)")
	runCmd.Flags().StringVar(&runReportPath, "report", "", "Write the run report to this file")
	runOutput.Bind(runCmd.Flags())
}

func runPipeline(cmd *cobra.Command, args []string) error {
	// Flag overrides go through viper so they pass the same validation as
	// file and environment settings.
	if runPython != "" {
		viper.Set("environment.python", runPython)
	}
	if runPlatform != "" {
		viper.Set("environment.platform", runPlatform)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger()
	client := conda.NewClient(cfg.Environment.CondaBin, conda.NewExecRunner(logger), logger)
	builder := pipeline.NewBuilder(cfg, client, logger)
	builder.SkipUpload = runSkipUpload
	p := builder.Build()

	if runDryRun {
		printPlan(p.Plan())
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runFollow != "" {
		broadcaster := stream.NewBroadcaster(logger)
		defer broadcaster.Shutdown()
		p.AddCallback(broadcaster.Callback())
		go func() {
			if err := stream.Serve(ctx, runFollow, broadcaster, logger); err != nil {
				logger.Warn(ctx, err, "event stream stopped")
			}
		}()
	}

	fmt.Printf("🧪 Running pipeline for environment %s (%s)\n\n", cfg.Environment.EnvName(), cfg.Environment.Platform)

	report, runErr := p.Run(ctx)

	if !runOutput.Quiet {
		printTimings(builder)
		if builder.CoverageReport != "" {
			fmt.Println("\n📊 Coverage")
			fmt.Println(builder.CoverageReport)
		}
	}

	fmt.Println("\n" + pipeline.Summary(report.Metrics))
	for _, failure := range p.Failures() {
		marker := "✗"
		if failure.Tolerated {
			marker = "~"
		}
		fmt.Printf("  %s %s: %v\n", marker, failure.Step, failure.Err)
	}

	if runReportPath != "" {
		if err := writeRunReport(runReportPath, report); err != nil {
			return fmt.Errorf("failed to write run report: %w", err)
		}
	}

	return runErr
}

func printTimings(builder *pipeline.Builder) {
	timing := builder.Timing
	if timing == nil || timing.Total() == 0 {
		return
	}

	fmt.Printf("\n⏱  Test timings: %d ok, %d warning, %d error\n",
		len(timing.OK), len(timing.Warning), len(timing.Error))
	for _, t := range timing.Warning {
		fmt.Printf("  ⚠ %s: %.2fs\n", t.Name, t.Seconds)
	}
	for _, t := range timing.Error {
		fmt.Printf("  ✗ %s: %.2fs\n", t.Name, t.Seconds)
	}
}

func writeRunReport(path string, report *pipeline.RunReport) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	format := runOutput.Format
	if format != "json" && format != "yaml" {
		format = "json"
	}
	return encodeTo(file, format, report)
}
