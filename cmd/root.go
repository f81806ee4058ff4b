// Package cmd provides the command-line interface for Beaker with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --python, etc.) - highest priority
//	2. BEAKER_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (BEAKER_ENVIRONMENT_PYTHON, etc.)
//	4. Configuration files (.beaker.yml) - lowest priority
//
// Environment Variables:
//
//	BEAKER_CONFIG_FILE: Path to custom configuration file
//	BEAKER_ENVIRONMENT_PYTHON: Override the Python version
//	BEAKER_ENVIRONMENT_PLATFORM: Override the platform label
//	PYTHON_VERSION / TRAVIS_OS_NAME: CI provider variables, honored as
//	fallbacks for compatibility with existing CI matrices
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/beaker/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "beaker",
	Short: "A typed CI pipeline runner for conda-based Python projects",
	Long: `Beaker runs the full CI pipeline for conda-based Python projects:
environment provisioning, dependency installation, lint, build, test with
per-test timing thresholds, coverage reporting and upload, and teardown.

Each step carries an explicit failure policy, so "this failure aborts the
run" and "this failure is tolerated" are configuration, not accidents of
shell scripting.

Quick Start:
  beaker run                      Run the full pipeline
  beaker plan                     Show the step plan without running
  beaker validate                 Validate the configuration
  beaker doctor                   Diagnose the host environment
  beaker watch                    Re-run the pipeline on file changes

Documentation: https://github.com/conneroisu/beaker`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .beaker.yml, can also use BEAKER_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig initializes the configuration system.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. BEAKER_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .beaker.yml in current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("BEAKER_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".beaker")
	}

	// Enable automatic environment variable binding with BEAKER_ prefix
	// Examples: BEAKER_ENVIRONMENT_PYTHON, BEAKER_COVERAGE_UPLOAD
	viper.SetEnvPrefix("BEAKER")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is not an error: defaults plus environment
	// variables are a complete configuration.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the logger shared by all commands from the effective
// log-level setting.
func newLogger() logging.Logger {
	logConfig := logging.DefaultConfig()
	logConfig.Level = logging.ParseLevel(viper.GetString("log-level"))
	return logging.NewLogger(logConfig)
}
