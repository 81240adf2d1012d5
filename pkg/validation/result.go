// Package validation provides the field-level validators and the
// error/result model used when admitting protein records. All validators
// are pure functions over their inputs: they never perform I/O and report
// every failure as data rather than as a Go error.
package validation

import (
	"encoding/json"
	"strings"
)

// Kind classifies a validation failure.
type Kind string

// Validation error kinds. Callers branch on the kind, never on message text.
const (
	// KindInvalidSequence reports characters outside the configured alphabet.
	KindInvalidSequence Kind = "invalid_sequence"
	// KindInvalidCoordinates reports a malformed coordinate structure.
	KindInvalidCoordinates Kind = "invalid_coordinates"
	// KindMissingRequiredField reports an absent or empty required field.
	KindMissingRequiredField Kind = "missing_required_field"
	// KindInvalidFormat reports a value of the wrong shape or type.
	KindInvalidFormat Kind = "invalid_format"
	// KindOutOfBounds reports a coordinate outside its permitted range.
	KindOutOfBounds Kind = "out_of_bounds"
	// KindInconsistentData reports disagreement between related fields or records.
	KindInconsistentData Kind = "inconsistent_data"
)

// Error reports a single validation failure with its context.
type Error struct {
	Kind    Kind           `json:"kind"`
	Field   string         `json:"field_name"`
	Message string         `json:"message"`
	Value   any            `json:"value,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// Result aggregates the outcome of one validation pass. Errors keep
// insertion order and are never deduplicated. Warnings are informational
// and never affect Valid.
type Result struct {
	Valid    bool     `json:"is_valid"`
	Errors   []Error  `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewResult returns a passing result with no findings.
func NewResult() Result {
	return Result{Valid: true}
}

// MarshalJSON emits "errors" as an empty array rather than null when no
// failures were recorded, keeping the serialized shape stable for consumers.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	out := plain(r)
	if out.Errors == nil {
		out.Errors = []Error{}
	}
	return json.Marshal(out)
}

// AddError records a failure and marks the result invalid.
func (r *Result) AddError(err Error) {
	r.Errors = append(r.Errors, err)
	r.Valid = false
}

// AddWarning records a non-fatal finding.
func (r *Result) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// ErrorMessage joins the collected error messages with "; " in insertion
// order. Intended for human-readable surfacing only.
func (r Result) ErrorMessage() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Extend appends another result's errors and warnings. When prefix is
// non-empty each appended error's field path is qualified with it, so
// nested validator output keeps its origin visible (e.g.
// "region_of_interest.start").
func (r *Result) Extend(prefix string, other Result) {
	for _, e := range other.Errors {
		if prefix != "" {
			if e.Field == "" {
				e.Field = prefix
			} else {
				e.Field = prefix + "." + e.Field
			}
		}
		r.AddError(e)
	}
	r.Warnings = append(r.Warnings, other.Warnings...)
}
