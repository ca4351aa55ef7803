// Package checks decides whether a required automated check has passed on
// the current head of a review request.
package checks

import (
	"fmt"

	"github.com/Tubbz-alt/skara/internal/entities"
)

// Verdict is the state of the required check.
type Verdict int

const (
	Pass Verdict = iota
	InProgress
	Failed
	// NotYetRun means no check with the required name exists for the current
	// head, typically because the head moved after the last run.
	NotYetRun
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "PASS"
	case InProgress:
		return "IN_PROGRESS"
	case Failed:
		return "FAILED"
	default:
		return "NOT_YET_RUN"
	}
}

// Evaluation is the verdict together with what it was computed for.
type Evaluation struct {
	Verdict Verdict
	Name    string
	Head    entities.Hash
}

// Evaluate looks up the required check among those performed on head.
func Evaluate(performed map[string]entities.Check, name string, head entities.Hash) Evaluation {
	e := Evaluation{Name: name, Head: head, Verdict: NotYetRun}
	check, ok := performed[name]
	if !ok {
		return e
	}
	switch check.Status {
	case entities.CheckSuccess:
		e.Verdict = Pass
	case entities.CheckInProgress:
		e.Verdict = InProgress
	default:
		e.Verdict = Failed
	}
	return e
}

// Problem describes why the evaluation blocks integration. It is empty for
// Pass.
func (e Evaluation) Problem() string {
	switch e.Verdict {
	case Pass:
		return ""
	case InProgress:
		return fmt.Sprintf("the status check `%s` is still in progress", e.Name)
	case Failed:
		return fmt.Sprintf("the status check `%s` did not complete successfully", e.Name)
	default:
		return fmt.Sprintf("the status check `%s` has not been performed on commit %s yet", e.Name, e.Head)
	}
}

// Reason maps the verdict onto a result reason.
func (e Evaluation) Reason() entities.Reason {
	switch e.Verdict {
	case InProgress:
		return entities.ReasonCheckPending
	case Failed:
		return entities.ReasonCheckFailed
	default:
		return entities.ReasonCheckMissing
	}
}
