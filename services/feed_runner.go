package services

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// MessageHandler processes one raw feed payload. A returned error means the
// payload was not attributable to any request (undecodable); the feed drops
// it and reclaims the credit itself, since no pipeline stage can.
type MessageHandler func(ctx context.Context, payload []byte) error

// FeedRunner consumes the invoker's activation queue. Delivery is bounded by
// a fixed pool of credits: one credit is taken per delivered message and
// returned through Release once some component has finished being
// responsible for it. When all credits are out, the runner stops popping and
// the queue backs up, which is the backpressure mechanism.
type FeedRunner struct {
	redis   *RedisService
	queue   string
	handler MessageHandler
	logger  *log.Logger

	credits chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewFeedRunner(redis *RedisService, queue string, credits int, handler MessageHandler, logger *log.Logger) *FeedRunner {
	if credits <= 0 {
		credits = 16
	}
	pool := make(chan struct{}, credits)
	for i := 0; i < credits; i++ {
		pool <- struct{}{}
	}
	return &FeedRunner{
		redis:   redis,
		queue:   queue,
		handler: handler,
		logger:  logger,
		credits: pool,
		stopCh:  make(chan struct{}),
	}
}

// Release returns one feed credit. Called exactly once per delivered message
// by whichever component terminates it.
func (r *FeedRunner) Release() {
	select {
	case r.credits <- struct{}{}:
	default:
		// More releases than deliveries would mean a double completion
		// upstream; surface it instead of growing the pool.
		r.logger.Error("feed credit released more than once")
	}
}

// Start launches the consume loop.
func (r *FeedRunner) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx := context.Background()
		for {
			select {
			case <-r.stopCh:
				return
			case <-r.credits:
			}

			payload, err := r.pop(ctx)
			if err != nil {
				r.logger.Error("error reading from activation queue", "err", err)
				r.Release()
				time.Sleep(time.Second)
				continue
			}
			if payload == nil {
				// Wait timed out with no message.
				r.Release()
				continue
			}

			r.wg.Add(1)
			go func(payload []byte) {
				defer r.wg.Done()
				if err := r.handler(ctx, payload); err != nil {
					// Not attributable to a request; the credit
					// comes back here or it never would.
					r.Release()
				}
			}(payload)
		}
	}()
}

func (r *FeedRunner) pop(ctx context.Context) ([]byte, error) {
	return r.redis.PopMessage(ctx, r.queue, 5*time.Second)
}

func (r *FeedRunner) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}
