package entities

// ResultKind tags how a workflow ended.
type ResultKind string

const (
	// ResultSucceeded means the requested mutation happened.
	ResultSucceeded ResultKind = "succeeded"
	// ResultAwaitingSponsor is a successful hand-off to a privileged sponsor.
	ResultAwaitingSponsor ResultKind = "awaiting_sponsor"
	// ResultInputRejected covers malformed arguments, unknown targets and
	// denied permissions. Nothing was mutated.
	ResultInputRejected ResultKind = "input_rejected"
	// ResultBusinessRejected covers rule violations that need human action
	// before a retry.
	ResultBusinessRejected ResultKind = "business_rejected"
	// ResultInfraFault covers lock and I/O failures worth operator attention.
	ResultInfraFault ResultKind = "infra_fault"
)

// Reason is a machine readable detail of a Result.
type Reason string

const (
	ReasonIntegrated      Reason = "integrated"
	ReasonSponsorNeeded   Reason = "sponsor_needed"
	ReasonRequestOpened   Reason = "request_opened"
	ReasonNotAuthor       Reason = "not_author"
	ReasonNotContributor  Reason = "not_contributor"
	ReasonUsage           Reason = "usage"
	ReasonBadHash         Reason = "bad_hash"
	ReasonUnknownRepo     Reason = "unknown_repository"
	ReasonUnknownBranch   Reason = "unknown_branch"
	ReasonUnknownRequest  Reason = "unknown_pull_request"
	ReasonCheckFailed     Reason = "check_failed"
	ReasonCheckPending    Reason = "check_in_progress"
	ReasonCheckMissing    Reason = "check_not_yet_run"
	ReasonNotReady        Reason = "not_ready"
	ReasonTargetMoved     Reason = "target_moved"
	ReasonConflict        Reason = "conflict"
	ReasonFinalCheck      Reason = "final_check_failed"
	ReasonNoChanges       Reason = "no_changes"
	ReasonBranchExists    Reason = "branch_exists"
	ReasonAlreadyPresent  Reason = "already_present"
	ReasonLockUnavailable Reason = "lock_unavailable"
	ReasonInternal        Reason = "internal_error"
)

// Result is the tagged outcome of a workflow. Reply is the text sent back to
// the requester; Err is only set for infrastructure faults.
type Result struct {
	Kind   ResultKind
	Reason Reason
	Reply  string
	Err    error
}

// Mutated reports whether the workflow changed remote state.
func (r Result) Mutated() bool {
	return r.Kind == ResultSucceeded || r.Kind == ResultAwaitingSponsor
}
