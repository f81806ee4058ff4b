package config

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/conneroisu/beaker/internal/validation"
)

var (
	pythonVersionPattern = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)
	envVarNamePattern    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateEnvironmentConfig(&config.Environment); err != nil {
		return fmt.Errorf("environment config: %w", err)
	}

	if err := validateCatalog(config.Catalog); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	if err := validateStepsConfig(&config.Steps); err != nil {
		return fmt.Errorf("steps config: %w", err)
	}

	if err := validateCoverageConfig(&config.Coverage); err != nil {
		return fmt.Errorf("coverage config: %w", err)
	}

	return nil
}

func validateEnvironmentConfig(env *EnvironmentConfig) error {
	if env.Python == "" {
		return fmt.Errorf("python version is required (set environment.python or PYTHON_VERSION)")
	}
	if !pythonVersionPattern.MatchString(env.Python) {
		return fmt.Errorf("invalid python version %q", env.Python)
	}

	if err := validation.ValidateEnvName(env.EnvName()); err != nil {
		return fmt.Errorf("derived environment name: %w", err)
	}

	for _, channel := range env.Channels {
		if err := validation.ValidateArgument(channel); err != nil {
			return fmt.Errorf("channel %q: %w", channel, err)
		}
	}

	return nil
}

func validateCatalog(catalog []Package) error {
	if len(catalog) == 0 {
		return fmt.Errorf("dependency catalog is empty")
	}

	seen := make(map[string]bool, len(catalog))
	for _, pkg := range catalog {
		if pkg.Name == "" {
			return fmt.Errorf("catalog entry with empty name")
		}
		if seen[pkg.Name] {
			return fmt.Errorf("duplicate catalog entry %q", pkg.Name)
		}
		seen[pkg.Name] = true

		if err := validation.ValidateArgument(pkg.Spec()); err != nil {
			return fmt.Errorf("package %q: %w", pkg.Name, err)
		}
		if pkg.Channel != "" {
			if err := validation.ValidateArgument(pkg.Channel); err != nil {
				return fmt.Errorf("package %q channel: %w", pkg.Name, err)
			}
		}
	}

	return nil
}

func validateStepsConfig(steps *StepsConfig) error {
	if err := validation.ValidateScriptPath(steps.LintScript); err != nil {
		return fmt.Errorf("lint script: %w", err)
	}
	if err := validation.ValidateScriptPath(steps.IntegrationScript); err != nil {
		return fmt.Errorf("integration script: %w", err)
	}

	if !envVarNamePattern.MatchString(steps.InstallRootVar) {
		return fmt.Errorf("install_root_var %q is not a valid environment variable name", steps.InstallRootVar)
	}

	if steps.TimerOK <= 0 {
		return fmt.Errorf("timer_ok must be positive, got %v", steps.TimerOK)
	}
	if steps.TimerWarning <= steps.TimerOK {
		return fmt.Errorf("timer_warning (%v) must exceed timer_ok (%v)",
			steps.TimerWarning, steps.TimerOK)
	}

	for step, policy := range steps.OnFailure {
		if policy != PolicyAbort && policy != PolicyContinue {
			return fmt.Errorf("step %q: unknown failure policy %q", step, policy)
		}
	}

	return nil
}

func validateCoverageConfig(cov *CoverageConfig) error {
	if cov.XMLPath == "" {
		return fmt.Errorf("xml_path cannot be empty")
	}
	if filepath.IsAbs(cov.XMLPath) {
		return fmt.Errorf("xml_path must be relative to the project root: %s", cov.XMLPath)
	}
	if cov.Upload && cov.CredentialsFile == "" {
		return fmt.Errorf("credentials_file is required when upload is enabled")
	}

	return nil
}
