// Package model defines the domain types used across the application.
package model

import "time"

// DetectionMethod identifies how a tracker page is examined for open signups.
type DetectionMethod string

// Supported detection methods.
const (
	MethodTextMatch   DetectionMethod = "text_match"
	MethodCSSSelector DetectionMethod = "css_selector"
	MethodXPath       DetectionMethod = "xpath"
)

// Status is the persisted signup status of a tracker.
type Status string

// Persisted status values. StatusUnknown is the initial state for a tracker
// with no stored record.
const (
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
	StatusUnknown Status = "unknown"
)

// Outcome is the tri-state result of evaluating a detection rule against
// fetched page content.
type Outcome int

// Detection outcomes. Indeterminate means the rule could not decide
// (no phrase matched, or the markup/expression failed to parse) and must
// never overwrite a previously known status.
const (
	OutcomeIndeterminate Outcome = iota
	OutcomeOpen
	OutcomeClosed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOpen:
		return "open"
	case OutcomeClosed:
		return "closed"
	default:
		return "indeterminate"
	}
}

// DetectionRule describes how to decide whether signups are open.
// Method selects the variant; only the fields for that variant are used.
type DetectionRule struct {
	Method DetectionMethod

	// text_match: case-insensitive phrase sets. Closed phrases take
	// precedence over open phrases when both are present.
	MatchText    []string
	NotMatchText []string

	// css_selector: presence of a matching element means open.
	CSSSelector string

	// xpath: presence of a matching node means open.
	XPath string
}

// Target is one monitored tracker. Immutable after configuration load.
type Target struct {
	Name      string
	URL       string
	SignupURL string // falls back to URL when empty
	Rule      DetectionRule

	// UseFlareSolverr overrides the global FlareSolverr setting for this
	// target; nil means use the global setting.
	UseFlareSolverr *bool

	Enabled bool
}

// CheckURL returns the URL the checker fetches for this target.
func (t Target) CheckURL() string {
	if t.SignupURL != "" {
		return t.SignupURL
	}
	return t.URL
}

// TargetState is the persisted per-tracker record. One entry per target
// name in the state file; overwritten on every check, never deleted.
type TargetState struct {
	Status       Status     `json:"status"`
	LastCheck    time.Time  `json:"last_check"`
	LastNotified *time.Time `json:"last_notified"`
}

// TransitionEvent is produced when a tracker's signups change from
// not-open to open. Constructed once per transition, consumed by all
// enabled notification channels, then discarded.
type TransitionEvent struct {
	TrackerName string
	TrackerURL  string
	SignupURL   string
	Message     string
	Status      Status
	Timestamp   time.Time
}

// Link returns the URL a notification should point the operator at.
func (e TransitionEvent) Link() string {
	if e.SignupURL != "" {
		return e.SignupURL
	}
	return e.TrackerURL
}
