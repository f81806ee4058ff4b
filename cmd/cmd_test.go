package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/beaker/internal/config"
	"github.com/conneroisu/beaker/internal/pipeline"
)

func TestStepTitle(t *testing.T) {
	assert.Equal(t, "Provision Clear", stepTitle.String("provision clear"))
	assert.Equal(t, "Teardown", stepTitle.String("teardown"))
}

func TestEncodeToJSON(t *testing.T) {
	var buf bytes.Buffer
	err := encodeTo(&buf, "json", map[string]string{"step": "lint"})
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "lint", decoded["step"])
}

func TestEncodeToYAML(t *testing.T) {
	var buf bytes.Buffer
	err := encodeTo(&buf, "yaml", map[string]string{"step": "lint"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "step: lint")
}

func TestEncodeToRejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := encodeTo(&buf, "xml", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestWriteRunReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	report := &pipeline.RunReport{
		Results: []pipeline.StepResult{
			{Name: "lint", Status: pipeline.StatusOK},
		},
	}

	require.NoError(t, writeRunReport(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded pipeline.RunReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, "lint", decoded.Results[0].Name)
}

func TestCalculateSummary(t *testing.T) {
	results := []DiagnosticResult{
		{Status: "ok"},
		{Status: "ok"},
		{Status: "warning"},
		{Status: "error"},
		{Status: "info"},
	}

	summary := calculateSummary(results)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 2, summary.OK)
	assert.Equal(t, 1, summary.Warnings)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Info)
}

func TestCheckScriptsMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := &config.Config{}
	cfg.Steps.LintScript = "devtools/ci/pylint_check.sh"
	cfg.Steps.IntegrationScript = "test/run_scripts.sh"

	result := checkScripts(t.Context(), cfg)
	assert.Equal(t, "error", result.Status)
	assert.Contains(t, result.Message, "pylint_check.sh")
}

func TestCheckScriptsPresent(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, os.MkdirAll("devtools/ci", 0o755))
	require.NoError(t, os.MkdirAll("test", 0o755))
	require.NoError(t, os.WriteFile("devtools/ci/pylint_check.sh", []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile("test/run_scripts.sh", []byte("#!/bin/sh\n"), 0o755))

	cfg := &config.Config{}
	cfg.Steps.LintScript = "devtools/ci/pylint_check.sh"
	cfg.Steps.IntegrationScript = "test/run_scripts.sh"

	result := checkScripts(t.Context(), cfg)
	assert.Equal(t, "ok", result.Status)
}

func TestCheckCredentialsUploadDisabled(t *testing.T) {
	cfg := &config.Config{}
	cfg.Coverage.Upload = false

	result := checkCredentials(t.Context(), cfg)
	assert.Equal(t, "info", result.Status)
}

func TestValidateCommandWithConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	viper.Reset()
	t.Cleanup(viper.Reset)

	configYAML := `environment:
  project: chem
  python: "3.6"
  platform: linux
steps:
  test_package: chemistry
`
	require.NoError(t, os.WriteFile(".beaker.yml", []byte(configYAML), 0o644))
	initConfig()

	validateOutput = OutputFlags{Format: "table", Quiet: true}
	err := runValidate(&cobra.Command{}, nil)
	require.NoError(t, err)
}

func TestWatchStopsWhenContextCancelled(t *testing.T) {
	t.Chdir(t.TempDir())
	viper.Reset()
	t.Cleanup(viper.Reset)

	configYAML := `environment:
  project: chem
  python: "3.6"
  platform: linux
`
	require.NoError(t, os.WriteFile(".beaker.yml", []byte(configYAML), 0o644))
	initConfig()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &cobra.Command{}
	c.SetContext(ctx)

	// The cancelled parent context must flow through to the watch loop, so
	// runWatch returns instead of blocking.
	err := runWatch(c, nil)
	require.NoError(t, err)
}

func TestPlanDryRunUsesEffectiveConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	viper.Reset()
	t.Cleanup(viper.Reset)

	configYAML := `environment:
  project: chem
  python: "3.6"
  platform: linux
coverage:
  upload: false
`
	require.NoError(t, os.WriteFile(".beaker.yml", []byte(configYAML), 0o644))
	initConfig()

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "chem-py3.6", cfg.Environment.EnvName())
	assert.False(t, cfg.Coverage.Upload)
}
