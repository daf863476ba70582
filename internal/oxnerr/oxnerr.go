// Package oxnerr defines the single error taxonomy used across oxn: a Kind
// enum plus an accumulated, newline-joined explanation. Grounded on the
// accumulate-then-raise-once pattern in the teacher's
// pkg/scenario/validator.Validator (Warnings/Errors slices, GetReport) and on
// the original oxn validation.py's self.messages accumulator.
package oxnerr

import (
	"fmt"
	"strings"
)

// Kind classifies which subsystem raised the error.
type Kind string

const (
	Orchestration Kind = "orchestration"
	MetricBackend Kind = "metric_backend"
	TraceBackend  Kind = "trace_backend"
	LoadGen       Kind = "loadgen"
	Validation    Kind = "validation"
)

// OxnError is the single error type raised by every oxn component.
type OxnError struct {
	Kind        Kind
	Explanation string
}

func (e *OxnError) Error() string {
	return string(e.Kind) + ": " + e.Explanation
}

// New builds an OxnError from a single message.
func New(kind Kind, msg string) *OxnError {
	return &OxnError{Kind: kind, Explanation: msg}
}

// FromMessages joins accumulated messages into one OxnError, or returns nil
// if messages is empty — the Go analog of validation.py raising only once
// all messages are gathered.
func FromMessages(kind Kind, messages []string) *OxnError {
	if len(messages) == 0 {
		return nil
	}
	return &OxnError{Kind: kind, Explanation: strings.Join(messages, "\n")}
}

// Accumulator collects diagnostic messages before a single error is raised,
// mirroring validator.Validator's Warnings/Errors slices.
type Accumulator struct {
	Kind     Kind
	Messages []string
}

func NewAccumulator(kind Kind) *Accumulator {
	return &Accumulator{Kind: kind}
}

func (a *Accumulator) Add(format string, args ...interface{}) {
	a.Messages = append(a.Messages, fmt.Sprintf(format, args...))
}

func (a *Accumulator) HasErrors() bool { return len(a.Messages) > 0 }

// Err returns the accumulated OxnError, or nil if nothing was recorded.
func (a *Accumulator) Err() error {
	if e := FromMessages(a.Kind, a.Messages); e != nil {
		return e
	}
	return nil
}
