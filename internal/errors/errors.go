package errors

import (
	"sync"
	"time"
)

// StepFailure records a failing pipeline step
type StepFailure struct {
	Step      string
	Tolerated bool
	Err       error
	Timestamp time.Time
}

// Collector accumulates failures across pipeline steps. Tolerated failures
// are kept for reporting but never drive the exit status; the first
// non-tolerated failure is what the run ultimately returns.
type Collector struct {
	failures []StepFailure
	mutex    sync.RWMutex
}

// NewCollector creates a new failure collector
func NewCollector() *Collector {
	return &Collector{
		failures: make([]StepFailure, 0),
	}
}

// Add records a step failure
func (c *Collector) Add(step string, tolerated bool, err error) {
	if err == nil {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.failures = append(c.failures, StepFailure{
		Step:      step,
		Tolerated: tolerated,
		Err:       err,
		Timestamp: time.Now(),
	})
}

// First returns the first non-tolerated failure, or nil.
func (c *Collector) First() error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	for _, f := range c.failures {
		if !f.Tolerated {
			return f.Err
		}
	}
	return nil
}

// All returns a copy of every recorded failure, tolerated or not.
func (c *Collector) All() []StepFailure {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]StepFailure, len(c.failures))
	copy(result, c.failures)
	return result
}

// HasFatal returns true if a non-tolerated failure was recorded
func (c *Collector) HasFatal() bool {
	return c.First() != nil
}

// Clear clears all recorded failures
func (c *Collector) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.failures = c.failures[:0]
}
