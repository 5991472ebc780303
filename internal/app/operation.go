package app

import "time"

// Operation tracks one CLI invocation. Its ID tags every log line written
// while the command runs.
type Operation struct {
	ID      string
	Command string
	Status  string // "success" or "error"
	Started time.Time
}

// NewOperation creates a successful operation for command started at now.
func NewOperation(command string, now time.Time) *Operation {
	return &Operation{
		ID:      now.UTC().Format("20060102T150405Z"),
		Command: command,
		Status:  "success",
		Started: now,
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}

// Failed returns true if Fail was called.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}
