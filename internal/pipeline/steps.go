package pipeline

import (
	"context"
	"fmt"

	"github.com/conneroisu/beaker/internal/conda"
	"github.com/conneroisu/beaker/internal/config"
	"github.com/conneroisu/beaker/internal/coverage"
	"github.com/conneroisu/beaker/internal/logging"
	"github.com/conneroisu/beaker/internal/nose"
)

// Builder assembles the canonical CI pipeline from configuration. The step
// order is fixed: provision-clear, provision, install, lint, build, test,
// coverage, upload, teardown. Artifacts of the run (timing classification,
// coverage text report) accumulate on the builder.
type Builder struct {
	cfg    *config.Config
	client *conda.Client
	logger logging.Logger

	// SkipUpload disables the upload step (forks without credentials).
	SkipUpload bool

	// Populated during the run.
	Timing         *nose.TimingReport
	CoverageReport string
}

// NewBuilder creates a pipeline builder
func NewBuilder(cfg *config.Config, client *conda.Client, logger logging.Logger) *Builder {
	return &Builder{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

// Build assembles the pipeline. The environment name is derived once here
// and closed over by every step that touches the environment.
func (b *Builder) Build() *Pipeline {
	cfg := b.cfg
	env := cfg.Environment.EnvName()
	platform := cfg.Environment.Platform
	classifier := nose.Classifier{
		OKSeconds:      cfg.Steps.TimerOK,
		WarningSeconds: cfg.Steps.TimerWarning,
	}
	covTool := coverage.NewTool(env, b.client, b.logger)

	p := New(b.logger)

	// Clearing a leftover environment is best-effort: the environment may
	// simply not exist yet.
	p.Add(Step{
		Name:   "provision-clear",
		Policy: config.PolicyContinue,
		Run: func(ctx context.Context) error {
			return b.client.RemoveEnv(ctx, env)
		},
	})

	p.Add(Step{
		Name:   "provision",
		Policy: cfg.Steps.PolicyFor("provision"),
		Run: func(ctx context.Context) error {
			if channels := cfg.Environment.ChannelsFor(platform); len(channels) > 0 {
				if err := b.client.AddChannels(ctx, channels...); err != nil {
					return err
				}
			}
			return b.client.CreateEnv(ctx, env, cfg.Environment.Python)
		},
	})

	p.Add(Step{
		Name:   "install",
		Policy: cfg.Steps.PolicyFor("install"),
		Run: func(ctx context.Context) error {
			var bulk []string
			for _, pkg := range cfg.Catalog {
				if pkg.Bulk() && pkg.WantedOn(platform) {
					bulk = append(bulk, pkg.Spec())
				}
			}
			if err := b.client.InstallBulk(ctx, env, bulk); err != nil {
				return err
			}
			for _, pkg := range cfg.Catalog {
				if pkg.Bulk() || !pkg.WantedOn(platform) {
					continue
				}
				if err := b.client.InstallOne(ctx, env, pkg); err != nil {
					return err
				}
			}
			return nil
		},
	})

	p.Add(Step{
		Name:   "lint",
		Policy: cfg.Steps.PolicyFor("lint"),
		Run: func(ctx context.Context) error {
			_, err := b.client.Run(ctx, env, "bash", cfg.Steps.LintScript)
			return err
		},
	})

	p.Add(Step{
		Name:   "build",
		Policy: cfg.Steps.PolicyFor("build"),
		Run: func(ctx context.Context) error {
			_, err := b.client.Run(ctx, env, "python", "setup.py", "install")
			return err
		},
	})

	p.Add(Step{
		Name:   "test",
		Policy: cfg.Steps.PolicyFor("test"),
		Run: func(ctx context.Context) error {
			// The test runner locates the installed package's data files
			// through the derived installation root, exported under the
			// configured variable name for both test invocations.
			testEnv := []string{cfg.Steps.InstallRootVar + "=" + cfg.Environment.InstallRoot()}

			// Integration scripts first, then the unit run under the
			// coverage wrapper in parallel-safe mode.
			if _, err := b.client.RunWithEnv(ctx, env, testEnv, "bash", cfg.Steps.IntegrationScript); err != nil {
				return err
			}

			args := []string{"run", "--parallel-mode", "--source=" + cfg.Steps.TestPackage, "-m", "nose", "-vs"}
			args = append(args, classifier.Args()...)
			args = append(args, cfg.Steps.TestPackage)

			output, err := b.client.RunWithEnv(ctx, env, testEnv, "coverage", args...)
			b.Timing = classifier.ParseOutput(string(output))
			return err
		},
	})

	p.Add(Step{
		Name:   "coverage",
		Policy: cfg.Steps.PolicyFor("coverage"),
		Run: func(ctx context.Context) error {
			if err := covTool.Combine(ctx); err != nil {
				return err
			}
			report, err := covTool.Report(ctx)
			if err != nil {
				return err
			}
			b.CoverageReport = report

			if err := covTool.XML(ctx, cfg.Coverage.XMLPath); err != nil {
				return err
			}
			return coverage.CheckArtifact(cfg.Coverage.XMLPath)
		},
	})

	if cfg.Coverage.Upload && !b.SkipUpload {
		uploader := coverage.NewUploader(env, cfg.Coverage.CredentialsFile, b.client, b.logger)
		p.Add(Step{
			Name:   "upload",
			Policy: cfg.Steps.PolicyFor("upload"),
			Run: func(ctx context.Context) error {
				return uploader.Upload(ctx)
			},
		})
	}

	p.Add(Step{
		Name:      "teardown",
		Policy:    cfg.Steps.PolicyFor("teardown"),
		AlwaysRun: true,
		Run: func(ctx context.Context) error {
			return b.client.RemoveEnv(ctx, env)
		},
	})

	return p
}

// Summary renders a one-line run summary.
func Summary(m Metrics) string {
	return fmt.Sprintf("%d steps: %d ok, %d failed, %d tolerated, %d skipped in %s",
		m.Total, m.Succeeded, m.Failed, m.Tolerated, m.Skipped, m.TotalDuration)
}
