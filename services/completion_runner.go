package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/umassos/openwhisk/models"
)

// CompletionRunner consumes worker execution results for activations whose
// completion responsibility was transferred to the pool, turns them into
// activation records, and reports them through the same completion triad as
// the failure path. This is where the feed credit held by a pool-dispatched
// request finally comes back.
type CompletionRunner struct {
	redis    *RedisService
	queue    string
	pending  *PendingRegistry
	reporter *CompletionReporter
	logger   *log.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewCompletionRunner(redis *RedisService, queue string, pending *PendingRegistry, reporter *CompletionReporter, logger *log.Logger) *CompletionRunner {
	return &CompletionRunner{
		redis:    redis,
		queue:    queue,
		pending:  pending,
		reporter: reporter,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (r *CompletionRunner) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx := context.Background()
		for {
			select {
			case <-r.stopCh:
				return
			default:
			}

			payload, err := r.redis.PopMessage(ctx, r.queue, 5*time.Second)
			if err != nil {
				r.logger.Error("error reading from result queue", "err", err)
				time.Sleep(time.Second)
				continue
			}
			if payload == nil {
				continue
			}

			r.handleResult(ctx, payload)
		}
	}()
}

func (r *CompletionRunner) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

func (r *CompletionRunner) handleResult(ctx context.Context, payload []byte) {
	var result models.ExecutionResult
	if err := json.Unmarshal(payload, &result); err != nil {
		r.logger.Error("dropping undecodable worker result", "err", err)
		return
	}

	msg, ok := r.pending.Remove(result.ActivationID)
	if !ok {
		// Replayed or foreign result; the first delivery already
		// completed the triad.
		r.logger.Warn("worker result for unknown activation", "activation", result.ActivationID)
		return
	}

	act := activationFromResult(msg, &result)
	r.reporter.Report(ctx, msg, act)
}

// activationFromResult builds the terminal activation record for a real
// execution reported by a worker.
func activationFromResult(msg *models.ActivationMessage, result *models.ExecutionResult) *models.Activation {
	end := time.Now().UTC()
	start := end.Add(-time.Duration(result.DurationMs) * time.Millisecond)

	var response models.Response
	switch result.Status {
	case models.ExecutionStatusSuccess:
		response = models.Success(result.Output)
	case models.ExecutionStatusTimeout:
		response = models.ApplicationError("action exceeded its time limit")
	default:
		response = models.ApplicationError(result.ErrorMessage)
	}

	return &models.Activation{
		ActivationID:  msg.ActivationID,
		TransactionID: msg.TransactionID,
		Namespace:     msg.Namespace,
		Subject:       msg.Subject,
		ActionName:    msg.Action.FullyQualified(),
		Start:         start,
		End:           end,
		Response:      response,
		Logs:          result.Logs,
		DurationMs:    result.DurationMs,
	}
}
