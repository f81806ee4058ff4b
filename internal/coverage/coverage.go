// Package coverage drives the coverage CLI (combine, report, xml) and the
// upload client. Parallel-mode data files from the test run are combined
// into one before any report is rendered; the XML artifact is produced
// before, and checked before, any upload.
package coverage

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	beakererrors "github.com/conneroisu/beaker/internal/errors"
	"github.com/conneroisu/beaker/internal/logging"
)

// EnvRunner runs a command inside the pipeline's conda environment.
// conda.Client satisfies this.
type EnvRunner interface {
	Run(ctx context.Context, env, command string, args ...string) ([]byte, error)
}

// Tool wraps the coverage CLI bound to one environment.
type Tool struct {
	env    string
	runner EnvRunner
	logger logging.Logger
}

// NewTool creates a coverage tool client for the named environment.
func NewTool(env string, runner EnvRunner, logger logging.Logger) *Tool {
	return &Tool{
		env:    env,
		runner: runner,
		logger: logger,
	}
}

// Combine merges the parallel coverage data files into one.
func (t *Tool) Combine(ctx context.Context) error {
	if _, err := t.runner.Run(ctx, t.env, "coverage", "combine"); err != nil {
		return beakererrors.NewCoverageError("COMBINE_FAILED", "combining coverage data").
			WithCause(err)
	}
	return nil
}

// Report renders the line-annotated text report and returns it.
func (t *Tool) Report(ctx context.Context) (string, error) {
	output, err := t.runner.Run(ctx, t.env, "coverage", "report", "-m")
	if err != nil {
		return "", beakererrors.NewCoverageError("REPORT_FAILED", "rendering coverage report").
			WithCause(err)
	}
	return string(output), nil
}

// XML exports the XML report to the given relative path.
func (t *Tool) XML(ctx context.Context, path string) error {
	if _, err := t.runner.Run(ctx, t.env, "coverage", "xml", "-o", path); err != nil {
		return beakererrors.NewCoverageError("XML_EXPORT_FAILED",
			fmt.Sprintf("exporting coverage XML to %s", path)).
			WithCause(err)
	}
	return nil
}

// CheckArtifact verifies the XML artifact exists and is well-formed before
// anything uploads it.
func CheckArtifact(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return beakererrors.NewCoverageError("ARTIFACT_MISSING",
			fmt.Sprintf("coverage artifact %s", path)).WithCause(err)
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return beakererrors.NewCoverageError("ARTIFACT_MALFORMED",
				fmt.Sprintf("coverage artifact %s is not well-formed XML", path)).
				WithCause(err)
		}
	}

	return nil
}
