package urlcheck

import (
	"time"
)

// Report summarizes one check run.
type Report struct {
	// Root describes where the route tree came from, e.g. a route table
	// path. Set by the host.
	Root string `json:"root,omitempty"`

	// Endpoints is the number of endpoints checked.
	Endpoints int `json:"endpoints"`

	// Errors and Warnings count the diagnostics by level.
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`

	// Duration is how long the run took.
	Duration time.Duration `json:"durationNs"`

	// Diagnostics are the findings in traversal order.
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// NewReport summarizes diagnostics.
func NewReport(diags []Diagnostic, endpoints int, duration time.Duration) *Report {
	if diags == nil {
		diags = []Diagnostic{}
	}
	r := &Report{
		Endpoints:   endpoints,
		Duration:    duration,
		Diagnostics: diags,
	}
	for _, d := range diags {
		switch {
		case d.IsError():
			r.Errors++
		case d.Level == LevelWarning:
			r.Warnings++
		}
	}
	return r
}

// HasErrors reports whether any diagnostic is an error.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Failed reports whether any diagnostic is at or above threshold.
// LevelNone never fails.
func (r *Report) Failed(threshold Level) bool {
	if threshold == LevelNone {
		return false
	}
	for _, d := range r.Diagnostics {
		if d.Level >= threshold {
			return true
		}
	}
	return false
}

// Clean reports whether the run found nothing.
func (r *Report) Clean() bool {
	return len(r.Diagnostics) == 0
}
