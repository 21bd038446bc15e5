package services

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/umassos/openwhisk/models"
)

// AdmissionPolicy decides, before any catalog I/O, whether a namespace may
// have work dispatched at all.
type AdmissionPolicy interface {
	IsBlocked(namespace string) bool
}

// ActionResolver resolves an activation target to an executable action.
type ActionResolver interface {
	Resolve(ctx context.Context, ref models.ActionRef) (*models.Action, *DispatchError)
}

// WorkerPool accepts (action, message) pairs for asynchronous execution. The
// pipeline observes nothing beyond acceptance; once Submit returns nil the
// pool owns acknowledgment, persistence, and feed-credit release for the
// request.
type WorkerPool interface {
	Submit(ctx context.Context, action *models.Action, msg *models.ActivationMessage) error
}

// MessageFeed hands out one credit per delivered message; Release returns it
// so the feed may deliver more work.
type MessageFeed interface {
	Release()
}

// Disposition is the terminal state of one pipeline invocation.
type Disposition int

const (
	// ResponsibilityTransferred: the worker pool accepted the request and
	// now owns its completion. The reporter must not run.
	ResponsibilityTransferred Disposition = iota
	// CompletionReported: a fallback activation was synthesized and
	// reported through the completion triad.
	CompletionReported
)

// DispatchService chains the dispatch pipeline for one activation message:
// decode, admission, catalog resolution, routing. Any stage failure after
// decoding is converted into exactly one fallback activation and reported
// exactly once.
type DispatchService struct {
	admission AdmissionPolicy
	catalog   ActionResolver
	pool      WorkerPool
	pending   *PendingRegistry
	reporter  *CompletionReporter
	logger    *log.Logger

	systemNamespace string
	stageTimeout    time.Duration
}

func NewDispatchService(
	admission AdmissionPolicy,
	catalog ActionResolver,
	pool WorkerPool,
	pending *PendingRegistry,
	reporter *CompletionReporter,
	systemNamespace string,
	stageTimeout time.Duration,
	logger *log.Logger,
) *DispatchService {
	if stageTimeout <= 0 {
		stageTimeout = 30 * time.Second
	}
	return &DispatchService{
		admission:       admission,
		catalog:         catalog,
		pool:            pool,
		pending:         pending,
		reporter:        reporter,
		logger:          logger,
		systemNamespace: systemNamespace,
		stageTimeout:    stageTimeout,
	}
}

// HandleMessage runs the pipeline for one raw feed payload. It returns an
// error only when the payload cannot be decoded; such messages carry no
// trustworthy correlation data, so the transport decides what to do with
// them and no completion is synthesized. Every other outcome is terminal
// inside this call: either the pool took the request or the completion triad
// ran exactly once.
func (s *DispatchService) HandleMessage(ctx context.Context, payload []byte) error {
	msg, err := models.DecodeActivationMessage(payload)
	if err != nil {
		s.logger.Error("dropping undecodable activation message", "err", err)
		return err
	}
	_, err = s.Dispatch(ctx, msg)
	return err
}

// Dispatch runs the pipeline stages for a decoded message and reports how the
// request was terminated.
func (s *DispatchService) Dispatch(ctx context.Context, msg *models.ActivationMessage) (Disposition, error) {
	if s.admission.IsBlocked(msg.Namespace) {
		s.logger.Info("activation denied by namespace policy",
			"namespace", msg.Namespace, "activation", msg.ActivationID)
		s.fail(ctx, msg, dispatchFailure(FailureNamespaceBlocked, nil))
		return CompletionReported, nil
	}

	// A stalled catalog or artifact read turns into a fetch failure here
	// rather than stalling the pipeline.
	resolveCtx, cancel := context.WithTimeout(ctx, s.stageTimeout)
	action, derr := s.catalog.Resolve(resolveCtx, msg.Action)
	cancel()
	if derr != nil {
		s.fail(ctx, msg, derr)
		return CompletionReported, nil
	}

	disp, derr := s.route(ctx, action, msg)
	if derr != nil {
		s.fail(ctx, msg, derr)
		return CompletionReported, nil
	}
	return disp, nil
}

// route decides the execution path for an executable action. Only requests
// from the system namespace have a pool route today; everything else fails
// loudly rather than falling through to system-namespace behavior.
func (s *DispatchService) route(ctx context.Context, action *models.Action, msg *models.ActivationMessage) (Disposition, *DispatchError) {
	switch {
	case msg.Namespace == s.systemNamespace:
		// Park the message before submitting so a fast worker result
		// cannot race the registry.
		s.pending.Add(msg)
		submitCtx, cancel := context.WithTimeout(ctx, s.stageTimeout)
		err := s.pool.Submit(submitCtx, action, msg)
		cancel()
		if err != nil {
			s.pending.Remove(msg.ActivationID)
			s.logger.Error("worker pool refused submission",
				"activation", msg.ActivationID, "err", err)
			return 0, dispatchFailure(FailureSubmit, err)
		}
		return ResponsibilityTransferred, nil

	case msg.ContextID != "":
		// Routing to a pre-provisioned execution context is not
		// implemented. Fail fast and loud; see the regression test.
		return 0, dispatchFailure(FailureUnsupportedRoute,
			errors.New("context-targeted dispatch is not implemented: "+msg.ContextID))

	default:
		return 0, dispatchFailure(FailureUnsupportedRoute,
			errors.New("no execution route for namespace "+msg.Namespace))
	}
}

// fail synthesizes the fallback activation for a request-attributable error
// and reports it through the completion triad.
func (s *DispatchService) fail(ctx context.Context, msg *models.ActivationMessage, derr *DispatchError) {
	act := SynthesizeActivation(msg, derr)
	s.reporter.Report(ctx, msg, act)
}
