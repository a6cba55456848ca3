package buildgraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidGraph = errors.New("invalid build graph")
	ErrCycleFound   = errors.New("cycle detected")
	ErrFinalized    = errors.New("graph already finalized")
)

// GraphError wraps deterministic graph construction and validation failures.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

func finalizedf(format string, args ...any) error {
	return &GraphError{Kind: ErrFinalized, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	msg := "cycle"
	if len(path) > 0 {
		msg = "cycle: " + strings.Join(path, " -> ")
	}
	return &GraphError{Kind: ErrCycleFound, Msg: msg}
}

// StepError reports the failure of one step's body or one of its actions.
// The underlying cause is carried unmodified.
type StepError struct {
	Step  string
	Phase Phase
	Cause error
}

// Phase identifies which part of a step's execution failed.
type Phase string

const (
	PhasePre  Phase = "pre-action"
	PhaseBody Phase = "body"
	PhasePost Phase = "post-action"
)

func (e *StepError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("step %q %s: %v", e.Step, e.Phase, e.Cause)
}

func (e *StepError) Unwrap() error { return e.Cause }
