package domain

import (
	"fmt"

	"github.com/Tubbz-alt/skara/internal/entities"
)

func mention(u entities.User, format string, args ...any) string {
	return "@" + u.Login + " " + fmt.Sprintf(format, args...)
}

func succeeded(reason entities.Reason, reply string) entities.Result {
	return entities.Result{Kind: entities.ResultSucceeded, Reason: reason, Reply: reply}
}

func awaitingSponsor(reply string) entities.Result {
	return entities.Result{Kind: entities.ResultAwaitingSponsor, Reason: entities.ReasonSponsorNeeded, Reply: reply}
}

func inputRejected(reason entities.Reason, reply string) entities.Result {
	return entities.Result{Kind: entities.ResultInputRejected, Reason: reason, Reply: reply}
}

func businessRejected(reason entities.Reason, reply string) entities.Result {
	return entities.Result{Kind: entities.ResultBusinessRejected, Reason: reason, Reply: reply}
}

// fault is an infrastructure failure. The reply is filled in at the
// workflow boundary unless a specific one is given.
func fault(err error) entities.Result {
	return entities.Result{Kind: entities.ResultInfraFault, Reason: entities.ReasonInternal, Err: err}
}

func genericFaultReply(workflow string) string {
	return "An unexpected error occurred during " + workflow + ". No push attempt will be made. " +
		"The error has been logged and will be investigated. It is possible that this error " +
		"is caused by a transient issue; feel free to retry the operation."
}
