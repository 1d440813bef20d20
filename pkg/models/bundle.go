package models

import "fmt"

// BundleState is the lifecycle of a RunBundle execution
type BundleState int

const (
	BundlePending BundleState = iota
	BundleRunning
	BundleSucceeded
	BundleAborted
	BundleCompletedWithErrors
)

func (s BundleState) String() string {
	switch s {
	case BundlePending:
		return "pending"
	case BundleRunning:
		return "running"
	case BundleSucceeded:
		return "succeeded"
	case BundleAborted:
		return "aborted"
	case BundleCompletedWithErrors:
		return "completed with errors"
	default:
		return fmt.Sprintf("BundleState(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible
func (s BundleState) Terminal() bool {
	return s == BundleSucceeded || s == BundleAborted || s == BundleCompletedWithErrors
}

// StepOutcome records one executed bundle step
type StepOutcome struct {
	Index  int // 1-based
	Action ActionRequest
	Result ExecutionResult
}

// BundleReport is the full record of a bundle run
type BundleReport struct {
	Name       string
	State      BundleState
	Steps      []StepOutcome
	FailedStep int // 1-based index of the step that aborted the bundle, 0 if none
}

// Failures returns the outcomes that did not succeed
func (r BundleReport) Failures() []StepOutcome {
	var failed []StepOutcome
	for _, s := range r.Steps {
		if !s.Result.OK {
			failed = append(failed, s)
		}
	}
	return failed
}
