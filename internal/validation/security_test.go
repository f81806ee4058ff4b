package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateArgument(t *testing.T) {
	tests := []struct {
		name        string
		arg         string
		expectError bool
	}{
		{"plain package name", "numpy", false},
		{"pinned package", "pandas=0.16.2", false},
		{"flag", "--no-deps", false},
		{"version", "3.6", false},
		{"semicolon injection", "numpy; rm -rf /", true},
		{"pipe injection", "numpy | cat", true},
		{"command substitution", "$(whoami)", true},
		{"backtick substitution", "`whoami`", true},
		{"path traversal", "../../etc/passwd", true},
		{"redirect", "foo > /tmp/out", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArgument(tt.arg)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	allowed := DefaultAllowedCommands()

	assert.NoError(t, ValidateCommand("conda", allowed))
	assert.NoError(t, ValidateCommand("coveralls", allowed))
	assert.NoError(t, ValidateCommand("/opt/miniconda/bin/conda", allowed))

	assert.Error(t, ValidateCommand("", allowed))
	assert.Error(t, ValidateCommand("rm", allowed))
	assert.Error(t, ValidateCommand("curl", allowed))
}

func TestValidateScriptPath(t *testing.T) {
	assert.NoError(t, ValidateScriptPath("devtools/ci/pylint_check.sh"))
	assert.NoError(t, ValidateScriptPath("test/run_scripts.sh"))

	assert.Error(t, ValidateScriptPath(""))
	assert.Error(t, ValidateScriptPath("../outside.sh"))
	assert.Error(t, ValidateScriptPath("/etc/profile"))
	assert.Error(t, ValidateScriptPath("scripts/run.sh; rm -rf /"))
}

func TestValidateEnvName(t *testing.T) {
	assert.NoError(t, ValidateEnvName("beaker-py3.6"))
	assert.NoError(t, ValidateEnvName("ci_env_2"))

	assert.Error(t, ValidateEnvName(""))
	assert.Error(t, ValidateEnvName("bad env"))
	assert.Error(t, ValidateEnvName("env;rm"))
	assert.Error(t, ValidateEnvName("env/name"))
}
