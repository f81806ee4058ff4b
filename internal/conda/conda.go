// Package conda wraps the conda CLI: environment creation and removal,
// channel configuration, catalog installs, and in-environment command
// execution. Every subcommand receives the same environment name, derived
// once by the caller.
package conda

import (
	"context"
	"fmt"

	"github.com/conneroisu/beaker/internal/config"
	beakererrors "github.com/conneroisu/beaker/internal/errors"
	"github.com/conneroisu/beaker/internal/logging"
)

// Client is a conda CLI client bound to one binary and one runner.
type Client struct {
	bin    string
	runner Runner
	logger logging.Logger
}

// NewClient creates a conda client. bin is the conda binary (name or path),
// runner executes the commands.
func NewClient(bin string, runner Runner, logger logging.Logger) *Client {
	if bin == "" {
		bin = "conda"
	}
	return &Client{
		bin:    bin,
		runner: runner,
		logger: logger,
	}
}

// RemoveEnv removes a named environment with everything in it. Callers
// treat a failure here as tolerated when clearing the way for a fresh
// create; the environment may simply not exist yet.
func (c *Client) RemoveEnv(ctx context.Context, env string) error {
	output, err := c.runner.Run(ctx, c.bin, "remove", "-y", "-n", env, "--all")
	if err != nil {
		return beakererrors.NewProvisionError("ENV_REMOVE_FAILED",
			fmt.Sprintf("removing environment %s: %s", env, tail(output))).
			WithCommand(c.bin + " remove").WithCause(err)
	}
	return nil
}

// CreateEnv creates a fresh minimal environment pinned to the given Python
// version. Unlike removal, a creation failure always aborts the pipeline.
func (c *Client) CreateEnv(ctx context.Context, env, pythonVersion string) error {
	output, err := c.runner.Run(ctx, c.bin, "create", "-y", "-n", env, "python="+pythonVersion)
	if err != nil {
		return beakererrors.NewProvisionError("ENV_CREATE_FAILED",
			fmt.Sprintf("creating environment %s with python %s: %s", env, pythonVersion, tail(output))).
			WithCommand(c.bin + " create").WithCause(err)
	}
	if c.logger != nil {
		c.logger.Info(ctx, "environment created", "env", env, "python", pythonVersion)
	}
	return nil
}

// AddChannels appends package channels to the conda search path, one config
// call per channel.
func (c *Client) AddChannels(ctx context.Context, channels ...string) error {
	for _, channel := range channels {
		output, err := c.runner.Run(ctx, c.bin, "config", "--add", "channels", channel)
		if err != nil {
			return beakererrors.NewProvisionError("CHANNEL_ADD_FAILED",
				fmt.Sprintf("adding channel %s: %s", channel, tail(output))).
				WithCommand(c.bin + " config").WithCause(err)
		}
	}
	return nil
}

// InstallBulk installs the unpinned bulk of the catalog in one call.
func (c *Client) InstallBulk(ctx context.Context, env string, specs []string) error {
	if len(specs) == 0 {
		return nil
	}
	args := append([]string{"install", "-y", "-n", env}, specs...)
	output, err := c.runner.Run(ctx, c.bin, args...)
	if err != nil {
		return beakererrors.NewInstallError("BULK_INSTALL_FAILED",
			fmt.Sprintf("installing %d packages into %s: %s", len(specs), env, tail(output))).
			WithCommand(c.bin + " install").WithCause(err)
	}
	return nil
}

// InstallOne installs a single catalog entry, honoring its version pin,
// channel, and no-deps mode.
func (c *Client) InstallOne(ctx context.Context, env string, pkg config.Package) error {
	args := []string{"install", "-y", "-n", env}
	if pkg.Channel != "" {
		args = append(args, "-c", pkg.Channel)
	}
	if pkg.NoDeps {
		args = append(args, "--no-deps")
	}
	args = append(args, pkg.Spec())

	output, err := c.runner.Run(ctx, c.bin, args...)
	if err != nil {
		return beakererrors.NewInstallError("INSTALL_FAILED",
			fmt.Sprintf("installing %s into %s: %s", pkg.Spec(), env, tail(output))).
			WithCommand(c.bin + " install").WithCause(err)
	}
	return nil
}

// Run executes a command inside the named environment via `conda run`.
// This replaces the legacy activate/deactivate dance with an explicit
// per-invocation environment binding.
func (c *Client) Run(ctx context.Context, env, command string, args ...string) ([]byte, error) {
	return c.RunWithEnv(ctx, env, nil, command, args...)
}

// RunWithEnv is Run with extra KEY=VALUE entries exported to the command's
// process environment. The test step uses it to hand the derived
// installation root to the test runner.
func (c *Client) RunWithEnv(ctx context.Context, env string, extraEnv []string, command string, args ...string) ([]byte, error) {
	runArgs := append([]string{"run", "-n", env, command}, args...)
	output, err := c.runner.RunWithEnv(ctx, extraEnv, c.bin, runArgs...)
	if err != nil {
		return output, beakererrors.NewExecError("ENV_RUN_FAILED",
			fmt.Sprintf("running %s in %s: %s", command, env, tail(output))).
			WithCommand(command).WithCause(err)
	}
	return output, nil
}

// tail returns the last portion of tool output for error messages.
func tail(output []byte) string {
	const max = 400
	s := string(output)
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
