package services

import (
	"context"

	"github.com/umassos/openwhisk/models"
)

// AckService sends combined acknowledgment-and-result notices to the
// controller instance named by the message's routing key.
type AckService struct {
	redis *RedisService
}

func NewAckService(redis *RedisService) *AckService {
	return &AckService{redis: redis}
}

func (a *AckService) Ack(ctx context.Context, msg *models.ActivationMessage, act *models.Activation) error {
	completion := &models.CompletionMessage{
		TransactionID: msg.TransactionID,
		Blocking:      msg.Blocking,
		Subject:       msg.Subject,
		Activation:    *act,
	}
	return a.redis.PushJSON(ctx, CompletedQueuePrefix+msg.RoutingKey, completion)
}
