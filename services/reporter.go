package services

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/umassos/openwhisk/models"
)

// Acknowledger sends the combined acknowledgment-and-result notice back to
// the originating controller instance.
type Acknowledger interface {
	Ack(ctx context.Context, msg *models.ActivationMessage, act *models.Activation) error
}

// ActivationRecorder durably persists terminal activation records.
type ActivationRecorder interface {
	Record(ctx context.Context, act *models.Activation) error
}

// CompletionReporter performs the terminal bookkeeping for every activation
// that reaches a non-dispatched outcome: feed-credit release, upstream
// acknowledgment, durable persistence. All three always run, in that order.
// Acknowledgment and persistence are independent fire-and-forget operations;
// a failure in one never rolls back or skips the other.
type CompletionReporter struct {
	feed   MessageFeed
	ack    Acknowledger
	store  ActivationRecorder
	logger *log.Logger
}

func NewCompletionReporter(feed MessageFeed, ack Acknowledger, store ActivationRecorder, logger *log.Logger) *CompletionReporter {
	return &CompletionReporter{
		feed:   feed,
		ack:    ack,
		store:  store,
		logger: logger,
	}
}

// Report runs the triad for one completed activation. The credit goes back
// first so a slow ack or store write never withholds feed capacity.
func (r *CompletionReporter) Report(ctx context.Context, msg *models.ActivationMessage, act *models.Activation) {
	r.feed.Release()

	if err := r.ack.Ack(ctx, msg, act); err != nil {
		r.logger.Error("failed to send completion acknowledgment",
			"activation", act.ActivationID, "err", err)
	}

	if err := r.store.Record(ctx, act); err != nil {
		r.logger.Error("failed to persist activation record",
			"activation", act.ActivationID, "err", err)
	}
}
