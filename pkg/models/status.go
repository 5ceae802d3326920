package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExecutionStatus represents the lifecycle state of a process execution.
// The ordinal values are stable and persisted as-is; only the labels cross
// serialization boundaries.
type ExecutionStatus int

const (
	ExecutionPending   ExecutionStatus = 0 // created, not yet started
	ExecutionStarted   ExecutionStatus = 1 // work in progress
	ExecutionCompleted ExecutionStatus = 2 // terminal
	ExecutionCancelled ExecutionStatus = 3 // terminal
)

var executionStatusLabels = map[ExecutionStatus]string{
	ExecutionPending:   "Pending",
	ExecutionStarted:   "Started",
	ExecutionCompleted: "Completed",
	ExecutionCancelled: "Cancelled",
}

// String returns the canonical label for the status.
func (s ExecutionStatus) String() string {
	if label, ok := executionStatusLabels[s]; ok {
		return label
	}

	return fmt.Sprintf("ExecutionStatus(%d)", int(s))
}

// Valid reports whether the status is one of the four defined states.
func (s ExecutionStatus) Valid() bool {
	_, ok := executionStatusLabels[s]

	return ok
}

// Terminal reports whether no further transition is permitted.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionCancelled
}

// ParseExecutionStatus maps a label back to its status, ignoring case.
func ParseExecutionStatus(label string) (ExecutionStatus, error) {
	for status, canonical := range executionStatusLabels {
		if strings.EqualFold(label, canonical) {
			return status, nil
		}
	}

	return 0, NewValidationError("status", fmt.Sprintf("unknown execution status %q", label))
}

// MarshalJSON serializes the status through its canonical label.
func (s ExecutionStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("invalid execution status ordinal %d", int(s)))
	}

	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either a canonical label or a bare ordinal.
func (s *ExecutionStatus) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		parsed, err := ParseExecutionStatus(label)
		if err != nil {
			return err
		}

		*s = parsed

		return nil
	}

	var ordinal int
	if err := json.Unmarshal(data, &ordinal); err != nil {
		return NewValidationError("status", "execution status must be a label or an ordinal")
	}

	parsed := ExecutionStatus(ordinal)
	if !parsed.Valid() {
		return NewValidationError("status", fmt.Sprintf("invalid execution status ordinal %d", ordinal))
	}

	*s = parsed

	return nil
}
