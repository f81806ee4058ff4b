package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/beaker/internal/conda"
	"github.com/conneroisu/beaker/internal/config"
	"github.com/conneroisu/beaker/internal/pipeline"
	"github.com/conneroisu/beaker/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch for file changes and re-run the pipeline",
	Long: `Watch the configured source paths and re-run the pipeline on changes.
Change bursts are debounced so one save triggers one run.

This is a local development loop: upload is skipped, and a failing run keeps
the watcher alive for the next change.

Examples:
  beaker watch                    # Watch configured paths
  beaker watch --verbose          # Print each changed file`,
	RunE: runWatch,
}

var watchVerbose bool

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Verbose output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger()
	client := conda.NewClient(cfg.Environment.CondaBin, conda.NewExecRunner(logger), logger)

	// The signal context exists before any handler registration so that
	// Ctrl+C also cancels an in-flight pipeline run.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
	fileWatcher, err := watcher.NewFileWatcher(debounce)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.IgnoreFilter(cfg.Watch.Ignore))

	fileWatcher.AddHandler(func(events []watcher.ChangeEvent) error {
		if watchVerbose {
			fmt.Println("📁 File changes detected:")
			for _, event := range events {
				fmt.Printf("   %s: %s\n", event.Type, event.Path)
			}
		} else {
			fmt.Printf("📁 %d file(s) changed\n", len(events))
		}

		builder := pipeline.NewBuilder(cfg, client, logger)
		builder.SkipUpload = true

		report, runErr := builder.Build().Run(ctx)
		fmt.Println(pipeline.Summary(report.Metrics))
		if runErr != nil {
			fmt.Printf("✗ run failed: %v\n", runErr)
		}
		// Keep watching after a failed run.
		return nil
	})

	for _, path := range cfg.Watch.Paths {
		if err := fileWatcher.AddRecursive(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}

	fileWatcher.Start(ctx)

	fmt.Printf("👀 Watching %v (Ctrl+C to stop)\n", cfg.Watch.Paths)
	<-ctx.Done()
	fmt.Println("\nStopping watcher...")
	return nil
}
