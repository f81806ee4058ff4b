package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/beaker/internal/config"
	"github.com/conneroisu/beaker/internal/coverage"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the host environment for pipeline runs",
	Long: `Diagnose the host environment and check that a pipeline run can succeed.

The doctor command checks for:

- Tool availability (conda, and the coveralls uploader when upload is on)
- Configuration validity
- Presence of the configured lint and integration scripts
- Coveralls credentials when upload is enabled

Examples:
  beaker doctor                     # Full environment diagnosis
  beaker doctor --verbose           # Include informational results
  beaker doctor --format json       # Output as JSON for tooling`,
	RunE: runDoctor,
}

var (
	doctorVerbose bool
	doctorOutput  OutputFlags
)

// DiagnosticResult represents the result of a diagnostic check
type DiagnosticResult struct {
	Name       string `json:"name" yaml:"name"`
	Status     string `json:"status" yaml:"status"` // "ok", "warning", "error", "info"
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// DoctorReport represents the complete diagnostic report
type DoctorReport struct {
	Timestamp   time.Time          `json:"timestamp" yaml:"timestamp"`
	Environment map[string]string  `json:"environment" yaml:"environment"`
	Results     []DiagnosticResult `json:"results" yaml:"results"`
	Summary     ReportSummary      `json:"summary" yaml:"summary"`
}

// ReportSummary provides an overview of diagnostic results
type ReportSummary struct {
	Total    int `json:"total" yaml:"total"`
	OK       int `json:"ok" yaml:"ok"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Errors   int `json:"errors" yaml:"errors"`
	Info     int `json:"info" yaml:"info"`
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVarP(&doctorVerbose, "verbose", "v", false, "Show verbose diagnostic information")
	doctorOutput.Bind(doctorCmd.Flags())
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	report := &DoctorReport{
		Timestamp:   time.Now(),
		Environment: gatherEnvironmentInfo(),
		Results:     []DiagnosticResult{},
	}

	cfg, cfgErr := config.Load()

	checks := []func(context.Context, *config.Config) DiagnosticResult{
		checkConfiguration(cfgErr),
		checkCondaTool,
		checkScripts,
		checkCredentials,
		checkCIVariables,
	}

	for _, check := range checks {
		result := check(ctx, cfg)
		report.Results = append(report.Results, result)
	}
	report.Summary = calculateSummary(report.Results)

	if doctorOutput.Structured() {
		return doctorOutput.Render(report)
	}

	fmt.Println("🔍 Beaker Environment Doctor")
	fmt.Println("============================")
	fmt.Println()
	for _, result := range report.Results {
		if !doctorVerbose && result.Status == "info" {
			continue
		}
		displayResult(result)
	}

	fmt.Println("\n📊 Summary")
	fmt.Printf("  %d checks: %d ok, %d warnings, %d errors\n",
		report.Summary.Total, report.Summary.OK, report.Summary.Warnings, report.Summary.Errors)

	if report.Summary.Errors > 0 {
		return fmt.Errorf("%d diagnostic check(s) failed", report.Summary.Errors)
	}
	return nil
}

func gatherEnvironmentInfo() map[string]string {
	return map[string]string{
		"os":             runtime.GOOS,
		"arch":           runtime.GOARCH,
		"go_version":     runtime.Version(),
		"python_version": os.Getenv("PYTHON_VERSION"),
		"travis_os_name": os.Getenv("TRAVIS_OS_NAME"),
	}
}

func checkConfiguration(loadErr error) func(context.Context, *config.Config) DiagnosticResult {
	return func(_ context.Context, cfg *config.Config) DiagnosticResult {
		if loadErr != nil {
			return DiagnosticResult{
				Name:       "configuration",
				Status:     "error",
				Message:    loadErr.Error(),
				Suggestion: "Fix .beaker.yml or the BEAKER_ environment overrides",
			}
		}
		return DiagnosticResult{
			Name:    "configuration",
			Status:  "ok",
			Message: fmt.Sprintf("valid, environment %s on %s", cfg.Environment.EnvName(), cfg.Environment.Platform),
		}
	}
}

func checkCondaTool(ctx context.Context, cfg *config.Config) DiagnosticResult {
	bin := "conda"
	if cfg != nil && cfg.Environment.CondaBin != "" {
		bin = cfg.Environment.CondaBin
	}

	path, err := exec.LookPath(bin)
	if err != nil {
		return DiagnosticResult{
			Name:       "conda",
			Status:     "error",
			Message:    fmt.Sprintf("%s not found in PATH", bin),
			Suggestion: "Install miniconda and ensure its bin directory is on PATH",
		}
	}

	versionCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	output, err := exec.CommandContext(versionCtx, bin, "--version").CombinedOutput()
	if err != nil {
		return DiagnosticResult{
			Name:    "conda",
			Status:  "warning",
			Message: fmt.Sprintf("found at %s but --version failed: %v", path, err),
		}
	}

	return DiagnosticResult{
		Name:    "conda",
		Status:  "ok",
		Message: fmt.Sprintf("%s (%s)", strings.TrimSpace(string(output)), path),
	}
}

func checkScripts(_ context.Context, cfg *config.Config) DiagnosticResult {
	if cfg == nil {
		return DiagnosticResult{Name: "scripts", Status: "info", Message: "skipped, configuration invalid"}
	}

	var missing []string
	for _, script := range []string{cfg.Steps.LintScript, cfg.Steps.IntegrationScript} {
		if _, err := os.Stat(script); err != nil {
			missing = append(missing, script)
		}
	}
	if len(missing) > 0 {
		return DiagnosticResult{
			Name:       "scripts",
			Status:     "error",
			Message:    fmt.Sprintf("missing: %s", strings.Join(missing, ", ")),
			Suggestion: "Run beaker from the project root, or fix the script paths in the configuration",
		}
	}
	return DiagnosticResult{Name: "scripts", Status: "ok", Message: "lint and integration scripts present"}
}

func checkCredentials(_ context.Context, cfg *config.Config) DiagnosticResult {
	if cfg == nil {
		return DiagnosticResult{Name: "credentials", Status: "info", Message: "skipped, configuration invalid"}
	}
	if !cfg.Coverage.Upload {
		return DiagnosticResult{Name: "credentials", Status: "info", Message: "upload disabled, credentials not needed"}
	}

	creds, err := coverage.ReadCredentials(cfg.Coverage.CredentialsFile)
	if err != nil {
		return DiagnosticResult{
			Name:       "credentials",
			Status:     "warning",
			Message:    err.Error(),
			Suggestion: "Provide " + cfg.Coverage.CredentialsFile + " with a repo_token, or run with --skip-upload",
		}
	}
	return DiagnosticResult{
		Name:    "credentials",
		Status:  "ok",
		Message: fmt.Sprintf("%s present (service: %s)", cfg.Coverage.CredentialsFile, creds.ServiceName),
	}
}

func checkCIVariables(_ context.Context, _ *config.Config) DiagnosticResult {
	python := os.Getenv("PYTHON_VERSION")
	osName := os.Getenv("TRAVIS_OS_NAME")
	if python == "" && osName == "" {
		return DiagnosticResult{
			Name:    "ci-variables",
			Status:  "info",
			Message: "PYTHON_VERSION and TRAVIS_OS_NAME unset, using configured values",
		}
	}
	return DiagnosticResult{
		Name:    "ci-variables",
		Status:  "ok",
		Message: fmt.Sprintf("PYTHON_VERSION=%q TRAVIS_OS_NAME=%q", python, osName),
	}
}

func calculateSummary(results []DiagnosticResult) ReportSummary {
	summary := ReportSummary{Total: len(results)}
	for _, result := range results {
		switch result.Status {
		case "ok":
			summary.OK++
		case "warning":
			summary.Warnings++
		case "error":
			summary.Errors++
		case "info":
			summary.Info++
		}
	}
	return summary
}

func displayResult(result DiagnosticResult) {
	icon := map[string]string{
		"ok":      "✅",
		"warning": "⚠️",
		"error":   "❌",
		"info":    "ℹ️",
	}[result.Status]

	fmt.Printf("%s %s: %s\n", icon, result.Name, result.Message)
	if result.Suggestion != "" {
		fmt.Printf("   💡 %s\n", result.Suggestion)
	}
}
