// Package pipeline runs an ordered list of named steps, each invoking an
// external tool, with an explicit per-step failure policy. The legacy shell
// script's "some failures abort, some don't" accident becomes auditable
// policy: a step either aborts the run or tolerates its failure, and
// always-run steps (teardown) execute regardless of earlier failures.
package pipeline

import (
	"context"
	"time"

	"github.com/conneroisu/beaker/internal/config"
	beakererrors "github.com/conneroisu/beaker/internal/errors"
	"github.com/conneroisu/beaker/internal/logging"
)

// Status is the outcome of one step.
type Status string

const (
	StatusOK        Status = "ok"
	StatusFailed    Status = "failed"
	StatusTolerated Status = "tolerated"
	StatusSkipped   Status = "skipped"
)

// Step is one named unit of the pipeline.
type Step struct {
	Name string
	// Policy decides whether a nonzero exit aborts the run.
	Policy config.FailurePolicy
	// AlwaysRun steps execute even after an earlier fatal failure.
	AlwaysRun bool
	Run       func(ctx context.Context) error
}

// StepResult is the recorded outcome of one step execution.
type StepResult struct {
	Name     string        `json:"name" yaml:"name"`
	Status   Status        `json:"status" yaml:"status"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// StepCallback is called when a step completes
type StepCallback func(result StepResult)

// PlanEntry describes one step of the run plan without executing it.
type PlanEntry struct {
	Name      string               `json:"name" yaml:"name"`
	Policy    config.FailurePolicy `json:"on_failure" yaml:"on_failure"`
	AlwaysRun bool                 `json:"always_run,omitempty" yaml:"always_run,omitempty"`
}

// Pipeline executes steps strictly in order under one context.
type Pipeline struct {
	steps     []Step
	callbacks []StepCallback
	metrics   *metricsTracker
	collector *beakererrors.Collector
	logger    logging.Logger
}

// New creates an empty pipeline
func New(logger logging.Logger) *Pipeline {
	return &Pipeline{
		metrics:   &metricsTracker{},
		collector: beakererrors.NewCollector(),
		logger:    logger,
	}
}

// Add appends a step to the pipeline
func (p *Pipeline) Add(step Step) {
	p.steps = append(p.steps, step)
}

// AddCallback adds a callback to be called when steps complete
func (p *Pipeline) AddCallback(callback StepCallback) {
	p.callbacks = append(p.callbacks, callback)
}

// Plan returns the ordered step plan with policies.
func (p *Pipeline) Plan() []PlanEntry {
	plan := make([]PlanEntry, 0, len(p.steps))
	for _, step := range p.steps {
		plan = append(plan, PlanEntry{
			Name:      step.Name,
			Policy:    step.Policy,
			AlwaysRun: step.AlwaysRun,
		})
	}
	return plan
}

// RunReport is the outcome of a full pipeline run.
type RunReport struct {
	Results      []StepResult `json:"results" yaml:"results"`
	Metrics      Metrics      `json:"metrics" yaml:"metrics"`
	FirstFailure string       `json:"first_failure,omitempty" yaml:"first_failure,omitempty"`
}

// Run executes every step in order. After a fatal failure, remaining steps
// are skipped except those marked AlwaysRun. The returned error is the
// first non-tolerated failure, which callers propagate as the process exit
// status.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		Results: make([]StepResult, 0, len(p.steps)),
	}

	for _, step := range p.steps {
		if p.collector.HasFatal() && !step.AlwaysRun {
			result := StepResult{Name: step.Name, Status: StatusSkipped}
			p.record(report, result)
			continue
		}

		if err := ctx.Err(); err != nil {
			p.collector.Add(step.Name, false, err)
			result := StepResult{Name: step.Name, Status: StatusFailed, Error: err.Error()}
			p.record(report, result)
			continue
		}

		if p.logger != nil {
			p.logger.WithStep(step.Name).Info(ctx, "step started")
		}

		start := time.Now()
		err := step.Run(ctx)
		duration := time.Since(start)

		result := StepResult{
			Name:     step.Name,
			Status:   StatusOK,
			Duration: duration,
		}

		if err != nil {
			tolerated := step.Policy == config.PolicyContinue
			p.collector.Add(step.Name, tolerated, err)

			result.Error = err.Error()
			if tolerated {
				result.Status = StatusTolerated
				if p.logger != nil {
					p.logger.WithStep(step.Name).Warn(ctx, err, "step failed (tolerated)")
				}
			} else {
				result.Status = StatusFailed
				if p.logger != nil {
					p.logger.WithStep(step.Name).Error(ctx, err, "step failed")
				}
			}
		} else if p.logger != nil {
			p.logger.WithStep(step.Name).Info(ctx, "step completed", "duration", duration.String())
		}

		p.record(report, result)
	}

	report.Metrics = p.metrics.Snapshot()
	if first := p.collector.First(); first != nil {
		report.FirstFailure = first.Error()
		return report, first
	}
	return report, nil
}

// GetMetrics returns the current pipeline metrics
func (p *Pipeline) GetMetrics() Metrics {
	return p.metrics.Snapshot()
}

// Failures returns every recorded failure, tolerated included.
func (p *Pipeline) Failures() []beakererrors.StepFailure {
	return p.collector.All()
}

func (p *Pipeline) record(report *RunReport, result StepResult) {
	p.metrics.update(result)
	report.Results = append(report.Results, result)
	for _, callback := range p.callbacks {
		callback(result)
	}
}
