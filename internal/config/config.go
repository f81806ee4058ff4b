// Package config provides configuration management for beaker using Viper
// for flexible configuration loading from files, environment variables, and
// command-line flags.
//
// The configuration system supports YAML files, environment variable
// overrides with BEAKER_ prefix, validation, and security checks. It manages
// the conda environment settings, the dependency catalog, per-step failure
// policy, test timing thresholds, and coverage reporting options.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Catalog     []Package         `yaml:"catalog"`
	Steps       StepsConfig       `yaml:"steps"`
	Coverage    CoverageConfig    `yaml:"coverage"`
	Watch       WatchConfig       `yaml:"watch"`
}

// EnvironmentConfig describes the conda environment the pipeline owns for
// the duration of one run.
type EnvironmentConfig struct {
	Project   string   `yaml:"project"`
	Python    string   `yaml:"python"`
	Platform  string   `yaml:"platform"`
	Channels  []string `yaml:"channels"`
	CondaBin  string   `yaml:"conda_bin"`
	CondaRoot string   `yaml:"conda_root"`
}

// EnvName derives the environment name from the project tag and Python
// version. This is the single derivation point: create, install, run-in-env,
// and removal all use this name.
func (e EnvironmentConfig) EnvName() string {
	return fmt.Sprintf("%s-py%s", e.Project, e.Python)
}

// InstallRoot derives the environment's installation prefix under the conda
// root. The test runner reads the package's data files relative to this
// path, so the test step exports it as an environment variable.
func (e EnvironmentConfig) InstallRoot() string {
	return filepath.Join(e.CondaRoot, "envs", e.EnvName())
}

// ChannelsFor returns the extra package channels to configure for the given
// platform label. Channels are added exactly when the label is not "macos".
func (e EnvironmentConfig) ChannelsFor(platform string) []string {
	if platform == "macos" {
		return nil
	}
	return e.Channels
}

// Package is one dependency catalog entry.
type Package struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version,omitempty"`
	Channel      string `yaml:"channel,omitempty"`
	OnlyPlatform string `yaml:"only_platform,omitempty"`
	NoDeps       bool   `yaml:"no_deps,omitempty"`
}

// Spec renders the conda package spec ("name" or "name=version").
func (p Package) Spec() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "=" + p.Version
}

// Bulk reports whether the package belongs in the single bulk install call.
// Pinned, channelled, platform-conditional, and no-deps entries get their
// own install calls.
func (p Package) Bulk() bool {
	return p.Version == "" && p.Channel == "" && p.OnlyPlatform == "" && !p.NoDeps
}

// WantedOn reports whether the package installs on the given platform label.
func (p Package) WantedOn(platform string) bool {
	return p.OnlyPlatform == "" || p.OnlyPlatform == platform
}

// FailurePolicy is the per-step reaction to a nonzero tool exit.
type FailurePolicy string

const (
	// PolicyAbort stops the pipeline (teardown still runs) and the failure
	// becomes the process exit status.
	PolicyAbort FailurePolicy = "abort"
	// PolicyContinue logs the failure and proceeds; the legacy script's two
	// tolerated points (env removal before create, teardown) use this.
	PolicyContinue FailurePolicy = "continue"
)

// StepsConfig holds the commands and thresholds for the lint, build, and
// test steps, plus the per-step failure policy overrides.
type StepsConfig struct {
	LintScript        string                   `yaml:"lint_script"`
	IntegrationScript string                   `yaml:"integration_script"`
	TestPackage       string                   `yaml:"test_package"`
	InstallRootVar    string                   `yaml:"install_root_var"`
	TimerOK           float64                  `yaml:"timer_ok"`
	TimerWarning      float64                  `yaml:"timer_warning"`
	OnFailure         map[string]FailurePolicy `yaml:"on_failure"`
}

// PolicyFor returns the failure policy for a named step. Steps without an
// override abort; the provisioning removal and teardown default to continue,
// reproducing the legacy tolerated failures as explicit policy.
func (s StepsConfig) PolicyFor(step string) FailurePolicy {
	if p, ok := s.OnFailure[step]; ok {
		return p
	}
	switch step {
	case "teardown":
		return PolicyContinue
	default:
		return PolicyAbort
	}
}

// CoverageConfig holds coverage artifact and upload settings.
type CoverageConfig struct {
	XMLPath         string `yaml:"xml_path"`
	CredentialsFile string `yaml:"credentials_file"`
	Upload          bool   `yaml:"upload"`
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	Paths      []string `yaml:"paths"`
	Ignore     []string `yaml:"ignore"`
	DebounceMs int      `yaml:"debounce_ms"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle catalog set via viper (workaround for viper slice handling)
	if viper.IsSet("catalog") && len(config.Catalog) == 0 {
		var catalog []Package
		if err := viper.UnmarshalKey("catalog", &catalog); err == nil {
			config.Catalog = catalog
		}
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Environment.Project == "" {
		config.Environment.Project = "beaker"
	}
	if config.Environment.Python == "" {
		config.Environment.Python = os.Getenv("PYTHON_VERSION")
	}
	if config.Environment.Platform == "" {
		config.Environment.Platform = detectPlatform()
	}
	if len(config.Environment.Channels) == 0 {
		config.Environment.Channels = []string{"omnia", "conda-forge"}
	}
	if config.Environment.CondaBin == "" {
		config.Environment.CondaBin = "conda"
	}
	if config.Environment.CondaRoot == "" {
		config.Environment.CondaRoot = filepath.Join(os.Getenv("HOME"), "miniconda")
	}

	if len(config.Catalog) == 0 {
		config.Catalog = DefaultCatalog()
	}

	if config.Steps.LintScript == "" {
		config.Steps.LintScript = "devtools/ci/pylint_check.sh"
	}
	if config.Steps.IntegrationScript == "" {
		config.Steps.IntegrationScript = "test/run_scripts.sh"
	}
	if config.Steps.TestPackage == "" {
		config.Steps.TestPackage = "chemistry"
	}
	if config.Steps.InstallRootVar == "" {
		config.Steps.InstallRootVar = "CHEMISTRY_HOME"
	}
	if config.Steps.TimerOK == 0 {
		config.Steps.TimerOK = 5
	}
	if config.Steps.TimerWarning == 0 {
		config.Steps.TimerWarning = 60
	}
	if config.Steps.OnFailure == nil {
		config.Steps.OnFailure = make(map[string]FailurePolicy)
	}

	if config.Coverage.XMLPath == "" {
		config.Coverage.XMLPath = "coverage.xml"
	}
	if config.Coverage.CredentialsFile == "" {
		config.Coverage.CredentialsFile = ".coveralls.yml"
	}
	if !viper.IsSet("coverage.upload") {
		config.Coverage.Upload = true
	} else {
		config.Coverage.Upload = viper.GetBool("coverage.upload")
	}

	if len(config.Watch.Paths) == 0 {
		config.Watch.Paths = []string{"."}
	}
	if len(config.Watch.Ignore) == 0 {
		config.Watch.Ignore = []string{".git", "__pycache__", ".beaker"}
	}
	if config.Watch.DebounceMs == 0 {
		config.Watch.DebounceMs = 300
	}
}

// DefaultCatalog is the dependency catalog of the chemistry package's CI:
// one bulk call for the unpinned scientific stack, then per-package calls
// for the pinned and channelled entries. The molecular dynamics engine
// installs only on linux, in no-deps mode so its dependency solve cannot
// overwrite the package under test.
func DefaultCatalog() []Package {
	return []Package{
		{Name: "numpy"},
		{Name: "scipy"},
		{Name: "netcdf4"},
		{Name: "nose"},
		{Name: "nose-timer"},
		{Name: "coverage"},
		{Name: "pylint"},
		{Name: "pandas", Version: "0.16.2"},
		{Name: "ambermini", Channel: "omnia"},
		{Name: "openmm", Channel: "omnia", OnlyPlatform: "linux", NoDeps: true},
	}
}

// detectPlatform maps the host OS (or a CI-provided label) onto the
// platform labels the catalog rules use.
func detectPlatform() string {
	if label := os.Getenv("TRAVIS_OS_NAME"); label != "" {
		// Travis reports macOS as "osx".
		if label == "osx" {
			return "macos"
		}
		return label
	}
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	default:
		return runtime.GOOS
	}
}
