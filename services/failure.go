package services

import (
	"fmt"
	"time"

	"github.com/umassos/openwhisk/models"
)

// FailureKind enumerates every way the dispatch pipeline can fail a request
// after it has been decoded. The set is closed: ResponseFor must handle every
// variant, so each failure maps to exactly one response shape.
type FailureKind int

const (
	// FailureNamespaceBlocked is an admission deny. Expected, a policy
	// outcome rather than an error in the platform.
	FailureNamespaceBlocked FailureKind = iota
	// FailureActionNotFound means the action was deleted between enqueue
	// and dispatch. Expected catalog drift.
	FailureActionNotFound
	// FailureActionMismatch means the catalog document exists but could
	// not be read as an action (corruption or schema skew).
	FailureActionMismatch
	// FailureFetch covers every other catalog or artifact read failure:
	// connectivity, timeout, storage errors.
	FailureFetch
	// FailureNonExecutable means a metadata-only stub reached the
	// pipeline. Upstream catalog bug, logged at error severity.
	FailureNonExecutable
	// FailureUnsupportedRoute means no execution path exists for the
	// request (context-targeted dispatch, non-system namespaces).
	FailureUnsupportedRoute
	// FailureSubmit means the worker pool refused the submission, so
	// responsibility for the request stays with the pipeline.
	FailureSubmit
)

func (k FailureKind) String() string {
	switch k {
	case FailureNamespaceBlocked:
		return "namespace blocked"
	case FailureActionNotFound:
		return "action not found"
	case FailureActionMismatch:
		return "action mismatch"
	case FailureFetch:
		return "fetch error"
	case FailureNonExecutable:
		return "non-executable action"
	case FailureUnsupportedRoute:
		return "unsupported route"
	case FailureSubmit:
		return "pool submission failed"
	default:
		return "unknown failure"
	}
}

// DispatchError is a request-attributable pipeline failure. Every
// DispatchError is converted exactly once into a fallback activation and
// reported through the completion triad; none may vanish.
type DispatchError struct {
	Kind  FailureKind
	Cause error
}

func (e *DispatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *DispatchError) Unwrap() error {
	return e.Cause
}

func dispatchFailure(kind FailureKind, cause error) *DispatchError {
	return &DispatchError{Kind: kind, Cause: cause}
}

// ResponseFor maps a pipeline failure to its activation response. The mapping
// is total and pure: the same error always yields the same status and
// payload.
func ResponseFor(err *DispatchError) models.Response {
	switch err.Kind {
	case FailureNamespaceBlocked:
		return models.ApplicationError("namespace blocked")
	case FailureActionNotFound:
		return models.ApplicationError("action removed while invoking")
	case FailureActionMismatch:
		return models.WhiskError("action mismatch while invoking")
	case FailureFetch:
		return models.WhiskError("generic fetch error while invoking")
	case FailureNonExecutable:
		return models.WhiskError("action could not be executed")
	case FailureUnsupportedRoute:
		return models.WhiskError("no execution route for activation")
	case FailureSubmit:
		return models.WhiskError("failed to submit activation for execution")
	default:
		return models.WhiskError("unknown invoker failure")
	}
}

// SynthesizeActivation builds the fallback activation record for a request
// that could not be dispatched. Apart from the timestamps the construction is
// pure, and the record is shaped exactly like one produced by real execution.
func SynthesizeActivation(msg *models.ActivationMessage, derr *DispatchError) *models.Activation {
	now := time.Now().UTC()
	return &models.Activation{
		ActivationID:  msg.ActivationID,
		TransactionID: msg.TransactionID,
		Namespace:     msg.Namespace,
		Subject:       msg.Subject,
		ActionName:    msg.Action.FullyQualified(),
		Start:         now,
		End:           now,
		Response:      ResponseFor(derr),
	}
}
