package conda

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/conneroisu/beaker/internal/logging"
	"github.com/conneroisu/beaker/internal/validation"
)

// Runner executes an external command and returns its combined output.
// The pipeline's single implementation shells out; tests substitute a fake
// that records invocations.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// RunWithEnv runs the command with extra KEY=VALUE entries appended to
	// the process environment.
	RunWithEnv(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec after validating the command
// name and every argument against the injection screens.
type ExecRunner struct {
	logger  logging.Logger
	allowed map[string]bool
}

// NewExecRunner creates a runner restricted to the default tool allowlist.
func NewExecRunner(logger logging.Logger) *ExecRunner {
	return &ExecRunner{
		logger:  logger,
		allowed: validation.DefaultAllowedCommands(),
	}
}

// Run executes name with args and returns combined stdout/stderr.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.RunWithEnv(ctx, nil, name, args...)
}

// RunWithEnv executes name with args, with extraEnv appended to the
// inherited process environment. Environment entries pass the same argument
// screen as command arguments.
func (r *ExecRunner) RunWithEnv(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error) {
	if err := validation.ValidateCommand(name, r.allowed); err != nil {
		return nil, err
	}
	for _, arg := range args {
		if err := validation.ValidateArgument(arg); err != nil {
			return nil, err
		}
	}
	for _, entry := range extraEnv {
		if err := validation.ValidateArgument(entry); err != nil {
			return nil, err
		}
	}

	if r.logger != nil {
		r.logger.Debug(ctx, "executing command",
			"command", name,
			"args", strings.Join(args, " "),
			"env", strings.Join(extraEnv, " "),
		)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	return cmd.CombinedOutput()
}
