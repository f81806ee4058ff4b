package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T)
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "successful load with defaults",
			setup: func(t *testing.T) {
				viper.Reset()
				viper.Set("environment.python", "3.6")
				viper.Set("environment.platform", "linux")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "beaker", cfg.Environment.Project)
				assert.Equal(t, "beaker-py3.6", cfg.Environment.EnvName())
				assert.Equal(t, []string{"omnia", "conda-forge"}, cfg.Environment.Channels)
				assert.Equal(t, "conda", cfg.Environment.CondaBin)
				assert.Equal(t, "coverage.xml", cfg.Coverage.XMLPath)
				assert.Equal(t, ".coveralls.yml", cfg.Coverage.CredentialsFile)
				assert.True(t, cfg.Coverage.Upload)
				assert.Equal(t, 5.0, cfg.Steps.TimerOK)
				assert.Equal(t, 60.0, cfg.Steps.TimerWarning)
				assert.NotEmpty(t, cfg.Catalog)
			},
		},
		{
			name: "python version from environment variable",
			setup: func(t *testing.T) {
				viper.Reset()
				viper.Set("environment.platform", "linux")
				t.Setenv("PYTHON_VERSION", "2.7")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "2.7", cfg.Environment.Python)
				assert.Equal(t, "beaker-py2.7", cfg.Environment.EnvName())
			},
		},
		{
			name: "custom project tag",
			setup: func(t *testing.T) {
				viper.Reset()
				viper.Set("environment.python", "3.6")
				viper.Set("environment.platform", "linux")
				viper.Set("environment.project", "chemtest")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "chemtest-py3.6", cfg.Environment.EnvName())
			},
		},
		{
			name: "missing python version",
			setup: func(t *testing.T) {
				viper.Reset()
				viper.Set("environment.platform", "linux")
				t.Setenv("PYTHON_VERSION", "")
			},
			expectError: true,
		},
		{
			name: "malformed python version",
			setup: func(t *testing.T) {
				viper.Reset()
				viper.Set("environment.python", "three.six")
			},
			expectError: true,
		},
		{
			name: "invalid failure policy",
			setup: func(t *testing.T) {
				viper.Reset()
				viper.Set("environment.python", "3.6")
				viper.Set("steps.on_failure", map[string]string{"lint": "retry"})
			},
			expectError: true,
		},
		{
			name: "timer thresholds out of order",
			setup: func(t *testing.T) {
				viper.Reset()
				viper.Set("environment.python", "3.6")
				viper.Set("steps.timer_ok", 120)
				viper.Set("steps.timer_warning", 60)
			},
			expectError: true,
		},
		{
			name: "absolute coverage xml path rejected",
			setup: func(t *testing.T) {
				viper.Reset()
				viper.Set("environment.python", "3.6")
				viper.Set("coverage.xml_path", "/tmp/coverage.xml")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)

			cfg, err := Load()
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestChannelsFor(t *testing.T) {
	env := EnvironmentConfig{Channels: []string{"omnia", "conda-forge"}}

	assert.Equal(t, []string{"omnia", "conda-forge"}, env.ChannelsFor("linux"))
	assert.Equal(t, []string{"omnia", "conda-forge"}, env.ChannelsFor("windows"))
	assert.Nil(t, env.ChannelsFor("macos"))
}

func TestInstallRoot(t *testing.T) {
	env := EnvironmentConfig{Project: "beaker", Python: "3.6", CondaRoot: "/opt/miniconda"}
	assert.Equal(t, "/opt/miniconda/envs/beaker-py3.6", env.InstallRoot())
}

func TestPackageSpec(t *testing.T) {
	assert.Equal(t, "numpy", Package{Name: "numpy"}.Spec())
	assert.Equal(t, "pandas=0.16.2", Package{Name: "pandas", Version: "0.16.2"}.Spec())
}

func TestPackageBulk(t *testing.T) {
	assert.True(t, Package{Name: "numpy"}.Bulk())
	assert.False(t, Package{Name: "pandas", Version: "0.16.2"}.Bulk())
	assert.False(t, Package{Name: "ambermini", Channel: "omnia"}.Bulk())
	assert.False(t, Package{Name: "openmm", OnlyPlatform: "linux"}.Bulk())
	assert.False(t, Package{Name: "openmm", NoDeps: true}.Bulk())
}

func TestPackageWantedOn(t *testing.T) {
	unconditional := Package{Name: "numpy"}
	linuxOnly := Package{Name: "openmm", OnlyPlatform: "linux"}

	assert.True(t, unconditional.WantedOn("linux"))
	assert.True(t, unconditional.WantedOn("macos"))
	assert.True(t, linuxOnly.WantedOn("linux"))
	assert.False(t, linuxOnly.WantedOn("macos"))
}

func TestPolicyFor(t *testing.T) {
	steps := StepsConfig{OnFailure: map[string]FailurePolicy{
		"lint": PolicyContinue,
	}}

	assert.Equal(t, PolicyContinue, steps.PolicyFor("lint"))
	assert.Equal(t, PolicyContinue, steps.PolicyFor("teardown"))
	assert.Equal(t, PolicyAbort, steps.PolicyFor("install"))
	assert.Equal(t, PolicyAbort, steps.PolicyFor("provision"))
}

func TestDefaultCatalogShape(t *testing.T) {
	catalog := DefaultCatalog()

	var bulk, pinned, conditional int
	for _, pkg := range catalog {
		if pkg.Bulk() {
			bulk++
		}
		if pkg.Version != "" {
			pinned++
		}
		if pkg.OnlyPlatform != "" {
			conditional++
			assert.True(t, pkg.NoDeps, "platform-conditional entry must install without transitive deps")
		}
	}

	assert.Greater(t, bulk, 0, "catalog needs a bulk partition")
	assert.Greater(t, pinned, 0, "catalog needs at least one pinned entry")
	assert.Equal(t, 1, conditional, "catalog has exactly one platform-conditional entry")
}
