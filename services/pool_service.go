package services

import (
	"context"

	"github.com/umassos/openwhisk/models"
)

// PoolService submits activations to the worker pool by pushing execution
// requests onto per-runtime queues. Workers report results on the invoker's
// result queue, consumed by the CompletionRunner.
type PoolService struct {
	redis     *RedisService
	invokerID string
}

func NewPoolService(redis *RedisService, invokerID string) *PoolService {
	return &PoolService{redis: redis, invokerID: invokerID}
}

func (p *PoolService) Submit(ctx context.Context, action *models.Action, msg *models.ActivationMessage) error {
	req := &models.ExecutionRequest{
		ActivationID:  msg.ActivationID,
		TransactionID: msg.TransactionID,
		ActionName:    action.FullyQualified(),
		Revision:      action.Revision,
		Code:          action.Code,
		Runtime:       action.Runtime,
		Input:         msg.Content,
		MemoryMB:      action.MemoryMB,
		TimeoutMs:     action.TimeoutMs,
		ResultQueue:   ResultQueuePrefix + p.invokerID,
	}
	return p.redis.PushJSON(ctx, runtimeQueue(action.Runtime), req)
}

// runtimeQueue returns the execution queue name for a runtime.
func runtimeQueue(runtime string) string {
	switch runtime {
	case "python3.11", "python", "pypy3":
		return ExecutionQueuePrefix + "python"
	case "golang", "go":
		return ExecutionQueuePrefix + "golang"
	default:
		return ExecutionQueuePrefix + "javascript"
	}
}
