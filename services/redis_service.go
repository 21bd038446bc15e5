package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/redis/go-redis/v9"
)

const (
	// ActivationQueuePrefix is where controllers enqueue activation
	// messages, one queue per invoker instance.
	ActivationQueuePrefix = "activations:"
	// CompletedQueuePrefix is where controllers receive combined
	// acknowledgment-and-result notices.
	CompletedQueuePrefix = "completed:"
	// ExecutionQueuePrefix is where the worker pool picks up submissions,
	// one queue per runtime.
	ExecutionQueuePrefix = "execution_queue:"
	// ResultQueuePrefix is where workers report execution results back to
	// the invoker that dispatched them.
	ResultQueuePrefix = "results:"
)

type RedisService struct {
	client *redis.Client
}

func NewRedisService(host string, port int) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", host, port),
	})
	return &RedisService{client: client}
}

// PushJSON marshals v and pushes it onto the given queue.
func (r *RedisService) PushJSON(ctx context.Context, queueKey string, v interface{}) error {
	var err error
	xray.Capture(ctx, "Redis.LPush", func(ctx1 context.Context) error {
		jsonData, marshalErr := json.Marshal(v)
		if marshalErr != nil {
			err = marshalErr
			return marshalErr
		}
		err = r.client.LPush(ctx, queueKey, string(jsonData)).Err()

		if seg := xray.GetSegment(ctx1); seg != nil {
			seg.AddMetadata("redis.queue_key", queueKey)
			seg.AddMetadata("redis.operation", "LPUSH")
		}

		return err
	})
	return err
}

// PopMessage blocks up to timeout waiting for one message on the given
// queue. A nil payload with nil error means the wait timed out with no
// message available.
func (r *RedisService) PopMessage(ctx context.Context, queueKey string, timeout time.Duration) ([]byte, error) {
	result, err := r.client.BRPop(ctx, timeout, queueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// result[0] is the queue key, result[1] is the payload
	return []byte(result[1]), nil
}

// Ping checks Redis connection
func (r *RedisService) Ping(ctx context.Context) error {
	var err error
	xray.Capture(ctx, "Redis.Ping", func(ctx1 context.Context) error {
		err = r.client.Ping(ctx).Err()

		if seg := xray.GetSegment(ctx1); seg != nil {
			seg.AddMetadata("redis.operation", "PING")
		}

		return err
	})
	return err
}
