// Package nose parses the timer plugin output of the unit-test runner and
// classifies each test by elapsed time against the configured thresholds.
package nose

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// TimingClass buckets a test by its elapsed time.
type TimingClass string

const (
	ClassOK      TimingClass = "ok"
	ClassWarning TimingClass = "warning"
	ClassError   TimingClass = "error"
)

// TestTiming is one test's parsed timing line.
type TestTiming struct {
	Name    string      `json:"name" yaml:"name"`
	Seconds float64     `json:"seconds" yaml:"seconds"`
	Class   TimingClass `json:"class" yaml:"class"`
}

// TimingReport aggregates the classified timings of one test run.
type TimingReport struct {
	OK      []TestTiming `json:"ok" yaml:"ok"`
	Warning []TestTiming `json:"warning" yaml:"warning"`
	Error   []TestTiming `json:"error" yaml:"error"`
}

// Total returns the number of timed tests in the report.
func (r *TimingReport) Total() int {
	return len(r.OK) + len(r.Warning) + len(r.Error)
}

// Classifier classifies test timings against the ok/warning bounds.
// Elapsed <= OKSeconds is ok, <= WarningSeconds is warning, above is error.
type Classifier struct {
	OKSeconds      float64
	WarningSeconds float64
}

// Classify returns the timing class for an elapsed duration in seconds.
func (c Classifier) Classify(seconds float64) TimingClass {
	switch {
	case seconds <= c.OKSeconds:
		return ClassOK
	case seconds <= c.WarningSeconds:
		return ClassWarning
	default:
		return ClassError
	}
}

// timerLine matches the timer plugin's per-test summary lines, e.g.
// "chemistry.test.test_structure.TestAdd.test_bond: 0.0132s"
var timerLine = regexp.MustCompile(`^(\S+):\s+([0-9]+(?:\.[0-9]+)?)s$`)

// ParseOutput scans test runner output for timer lines and returns the
// classified report. Non-timing lines are ignored.
func (c Classifier) ParseOutput(output string) *TimingReport {
	report := &TimingReport{}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		match := timerLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		seconds, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}

		timing := TestTiming{
			Name:    match[1],
			Seconds: seconds,
			Class:   c.Classify(seconds),
		}

		switch timing.Class {
		case ClassOK:
			report.OK = append(report.OK, timing)
		case ClassWarning:
			report.Warning = append(report.Warning, timing)
		default:
			report.Error = append(report.Error, timing)
		}
	}

	return report
}

// Args renders the runner flags for the configured thresholds, in the
// timer plugin's own units.
func (c Classifier) Args() []string {
	return []string{
		"--with-timer",
		"--timer-ok", strconv.FormatFloat(c.OKSeconds, 'f', -1, 64),
		"--timer-warning", strconv.FormatFloat(c.WarningSeconds, 'f', -1, 64),
	}
}
