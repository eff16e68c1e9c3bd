// Package models defines data structures shared across the scraper.
package models

import "time"

// EntryTarget identifies one scrape unit: a named entry URL at which
// paginated extraction begins. Immutable once loaded from configuration.
type EntryTarget struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Record maps column names to extracted values. Values are strings or
// integers; keys are stable across all records produced by one plug-in,
// so a run always yields a uniform tabular schema.
type Record map[string]any

// ExtractionResult holds the outcome of processing one entry end-to-end.
type ExtractionResult struct {
	Entry    EntryTarget
	Records  []Record
	Warnings []string
	Failed   bool
	Err      error
}

// Warn appends a warning message to the result.
func (r *ExtractionResult) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// RunResult aggregates per-entry outcomes for a whole run.
type RunResult struct {
	Results     []*ExtractionResult
	StartTime   time.Time
	EndTime     time.Time
	EntryCount  int
	RecordCount int
}

// Succeeded returns the names of entries that completed without warnings.
func (r *RunResult) Succeeded() []string {
	var names []string
	for _, res := range r.Results {
		if !res.Failed && len(res.Warnings) == 0 {
			names = append(names, res.Entry.Name)
		}
	}
	return names
}

// Warned returns the names of entries that completed with warnings.
func (r *RunResult) Warned() []string {
	var names []string
	for _, res := range r.Results {
		if !res.Failed && len(res.Warnings) > 0 {
			names = append(names, res.Entry.Name)
		}
	}
	return names
}

// Failed returns the names of entries whose extraction was aborted.
func (r *RunResult) Failed() []string {
	var names []string
	for _, res := range r.Results {
		if res.Failed {
			names = append(names, res.Entry.Name)
		}
	}
	return names
}
