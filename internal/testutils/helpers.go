package testutils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/conneroisu/beaker/internal/config"
	"github.com/stretchr/testify/require"
)

// CreateTempProject creates a temporary project structure for testing
func CreateTempProject(t *testing.T) string {
	tempDir := t.TempDir()

	dirs := []string{
		"devtools/ci",
		"test",
		"chemistry",
	}

	for _, dir := range dirs {
		err := os.MkdirAll(filepath.Join(tempDir, dir), 0755)
		require.NoError(t, err)
	}

	return tempDir
}

// CreateTestScript writes an executable script file into the project
func CreateTestScript(t *testing.T, dir, rel string) string {
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755))
	return path
}

// CreateTestConfig creates a test configuration with a small catalog
func CreateTestConfig() *config.Config {
	return &config.Config{
		Environment: config.EnvironmentConfig{
			Project:   "beaker",
			Python:    "3.6",
			Platform:  "linux",
			Channels:  []string{"omnia", "conda-forge"},
			CondaBin:  "conda",
			CondaRoot: "/opt/miniconda",
		},
		Catalog: []config.Package{
			{Name: "numpy"},
			{Name: "nose"},
			{Name: "coverage"},
			{Name: "pandas", Version: "0.16.2"},
			{Name: "openmm", Channel: "omnia", OnlyPlatform: "linux", NoDeps: true},
		},
		Steps: config.StepsConfig{
			LintScript:        "devtools/ci/pylint_check.sh",
			IntegrationScript: "test/run_scripts.sh",
			TestPackage:       "chemistry",
			InstallRootVar:    "CHEMISTRY_HOME",
			TimerOK:           5,
			TimerWarning:      60,
			OnFailure:         map[string]config.FailurePolicy{},
		},
		Coverage: config.CoverageConfig{
			XMLPath:         "coverage.xml",
			CredentialsFile: ".coveralls.yml",
			Upload:          true,
		},
	}
}

// FakeRunner records command invocations and returns scripted results.
// It satisfies the conda.Runner interface.
type FakeRunner struct {
	mutex   sync.Mutex
	calls   []string
	outputs map[string][]byte
	errors  map[string]error
}

// NewFakeRunner creates a fake command runner
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		outputs: make(map[string][]byte),
		errors:  make(map[string]error),
	}
}

// Run records the invocation and returns any scripted output or error whose
// key is a substring of the command line.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f.RunWithEnv(ctx, nil, name, args...)
}

// RunWithEnv records the invocation with its extra environment entries
// prefixed shell-style ("KEY=VALUE cmd args...").
func (f *FakeRunner) RunWithEnv(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	line := name + " " + strings.Join(args, " ")
	if len(extraEnv) > 0 {
		line = strings.Join(extraEnv, " ") + " " + line
	}

	f.mutex.Lock()
	f.calls = append(f.calls, line)
	f.mutex.Unlock()

	for key, err := range f.errors {
		if strings.Contains(line, key) {
			return f.outputs[key], err
		}
	}
	for key, out := range f.outputs {
		if strings.Contains(line, key) {
			return out, nil
		}
	}
	return nil, nil
}

// FailOn makes any command line containing key fail
func (f *FakeRunner) FailOn(key string) {
	f.errors[key] = fmt.Errorf("exit status 1")
}

// OutputFor scripts the output for command lines containing key
func (f *FakeRunner) OutputFor(key string, output string) {
	f.outputs[key] = []byte(output)
}

// Calls returns the recorded command lines in invocation order
func (f *FakeRunner) Calls() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	result := make([]string, len(f.calls))
	copy(result, f.calls)
	return result
}

// CallsContaining returns recorded command lines containing the substring
func (f *FakeRunner) CallsContaining(substr string) []string {
	var matched []string
	for _, line := range f.Calls() {
		if strings.Contains(line, substr) {
			matched = append(matched, line)
		}
	}
	return matched
}
