package services

import (
	"sync"

	"github.com/umassos/openwhisk/models"
)

// PendingRegistry tracks activations whose completion responsibility was
// transferred to the worker pool. The original message is kept so the
// completion consumer can address the acknowledgment when the worker result
// arrives.
type PendingRegistry struct {
	mu      sync.Mutex
	pending map[string]*models.ActivationMessage
}

func NewPendingRegistry() *PendingRegistry {
	return &PendingRegistry{pending: make(map[string]*models.ActivationMessage)}
}

func (r *PendingRegistry) Add(msg *models.ActivationMessage) {
	r.mu.Lock()
	r.pending[msg.ActivationID] = msg
	r.mu.Unlock()
}

// Remove takes the message for an activation id out of the registry,
// reporting whether it was present. A second Remove for the same id returns
// false, which keeps replayed worker results from double-reporting.
func (r *PendingRegistry) Remove(activationID string) (*models.ActivationMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.pending[activationID]
	if ok {
		delete(r.pending, activationID)
	}
	return msg, ok
}

func (r *PendingRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
