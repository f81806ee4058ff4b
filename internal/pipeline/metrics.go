package pipeline

import (
	"sync"
	"time"
)

// Metrics is a snapshot of pipeline execution counts and timing
type Metrics struct {
	Total         int64         `json:"total" yaml:"total"`
	Succeeded     int64         `json:"succeeded" yaml:"succeeded"`
	Failed        int64         `json:"failed" yaml:"failed"`
	Tolerated     int64         `json:"tolerated" yaml:"tolerated"`
	Skipped       int64         `json:"skipped" yaml:"skipped"`
	TotalDuration time.Duration `json:"total_duration" yaml:"total_duration"`
}

// metricsTracker guards metrics updates; callbacks may read snapshots from
// another goroutine while the run progresses.
type metricsTracker struct {
	mutex   sync.RWMutex
	current Metrics
}

func (t *metricsTracker) update(result StepResult) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.current.Total++
	t.current.TotalDuration += result.Duration

	switch result.Status {
	case StatusOK:
		t.current.Succeeded++
	case StatusFailed:
		t.current.Failed++
	case StatusTolerated:
		t.current.Tolerated++
	case StatusSkipped:
		t.current.Skipped++
	}
}

// Snapshot returns a copy of the current metrics
func (t *metricsTracker) Snapshot() Metrics {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.current
}
