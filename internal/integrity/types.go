// Package integrity audits the live record store for structural and
// relational problems and keeps the resulting reports.
package integrity

import "time"

// IssueType classifies an integrity issue.
type IssueType string

const (
	MissingData      IssueType = "MISSING_DATA"
	CorruptedData    IssueType = "CORRUPTED_DATA"
	StaleData        IssueType = "STALE_DATA"
	InconsistentData IssueType = "INCONSISTENT_DATA"
)

// Severity of an issue, ordered LOW < MEDIUM < HIGH < CRITICAL.
type Severity string

const (
	Low      Severity = "LOW"
	Medium   Severity = "MEDIUM"
	High     Severity = "HIGH"
	Critical Severity = "CRITICAL"
)

func (s Severity) rank() int {
	switch s {
	case Low:
		return 1
	case Medium:
		return 2
	case High:
		return 3
	case Critical:
		return 4
	}
	return 0
}

// Status is the overall outcome of an audit.
type Status string

const (
	Passed  Status = "PASSED"
	Warning Status = "WARNING"
	Failed  Status = "FAILED"
)

// Issue is a single finding.
type Issue struct {
	Type        IssueType `json:"type"`
	Collection  string    `json:"collection"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
}

// Report is the immutable result of one audit run.
type Report struct {
	ID               string         `json:"id"`
	Timestamp        time.Time      `json:"timestamp"`
	Status           Status         `json:"status"`
	Issues           []Issue        `json:"issues"`
	CollectionCounts map[string]int `json:"collectionCounts,omitempty"`
	Duration         string         `json:"duration"`
}

// MaxSeverity returns the highest severity among issues, or "" when there are none.
func MaxSeverity(issues []Issue) Severity {
	var max Severity
	for _, is := range issues {
		if is.Severity.rank() > max.rank() {
			max = is.Severity
		}
	}
	return max
}

// DeriveStatus maps the highest issue severity to a report status:
// CRITICAL fails, HIGH warns, anything lower (or nothing) passes.
func DeriveStatus(issues []Issue) Status {
	switch MaxSeverity(issues) {
	case Critical:
		return Failed
	case High:
		return Warning
	default:
		return Passed
	}
}

// HasCritical reports whether the report contains a CRITICAL issue.
func (r *Report) HasCritical() bool {
	return MaxSeverity(r.Issues) == Critical
}
