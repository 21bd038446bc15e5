package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedMessage marks a feed payload that could not be decoded into an
// ActivationMessage. Messages failing this way carry no trustworthy
// correlation data, so the transport decides whether to retry or skip them.
var ErrMalformedMessage = errors.New("malformed activation message")

// ActionRef identifies the target action of an activation by fully-qualified
// name plus an optional pinned revision. An empty revision means the caller
// skipped version pinning and the catalog must be read fresh.
type ActionRef struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Revision  string `json:"revision,omitempty"`
}

// FullyQualified returns the namespace-qualified action name.
func (r ActionRef) FullyQualified() string {
	return r.Namespace + "/" + r.Name
}

// ActivationMessage is one unit of work delivered from the activation feed.
// It is decoded once per message and read-only afterwards.
type ActivationMessage struct {
	ActivationID  string                 `json:"activationId"`
	TransactionID string                 `json:"transactionId,omitempty"`
	Namespace     string                 `json:"namespace"`
	Subject       string                 `json:"subject"`
	Action        ActionRef              `json:"action"`
	ContextID     string                 `json:"contextId,omitempty"`
	Blocking      bool                   `json:"blocking"`
	RoutingKey    string                 `json:"routingKey"`
	Content       map[string]interface{} `json:"content,omitempty"`
	TraceContext  map[string]string      `json:"traceContext,omitempty"`
}

// DecodeActivationMessage parses a raw feed payload. Decoding is pure and has
// no side effects; any failure wraps ErrMalformedMessage.
func DecodeActivationMessage(payload []byte) (*ActivationMessage, error) {
	var msg ActivationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	switch {
	case msg.ActivationID == "":
		return nil, fmt.Errorf("%w: missing activationId", ErrMalformedMessage)
	case msg.Namespace == "":
		return nil, fmt.Errorf("%w: missing namespace", ErrMalformedMessage)
	case msg.Subject == "":
		return nil, fmt.Errorf("%w: missing subject", ErrMalformedMessage)
	case msg.Action.Name == "":
		return nil, fmt.Errorf("%w: missing action name", ErrMalformedMessage)
	}
	if msg.Action.Namespace == "" {
		msg.Action.Namespace = msg.Namespace
	}
	if msg.TransactionID == "" {
		// Keep log correlation possible even for controllers that did
		// not stamp a transaction id.
		msg.TransactionID = uuid.NewString()
	}
	return &msg, nil
}

// Response status constants. Only the latter two are produced by the dispatch
// pipeline itself, since it never executes an action.
const (
	ResponseStatusSuccess          = "success"
	ResponseStatusApplicationError = "application error"
	ResponseStatusWhiskError       = "whisk internal error"
)

// Response is the outcome of one activation attempt.
type Response struct {
	Status string                 `json:"status"`
	Result map[string]interface{} `json:"result,omitempty"`
}

// ApplicationError builds a response for a failure attributed to the invoked
// logic or to policy. It still counts as a completed activation.
func ApplicationError(msg string) Response {
	return Response{
		Status: ResponseStatusApplicationError,
		Result: map[string]interface{}{"error": msg},
	}
}

// WhiskError builds a response for a failure where the platform itself could
// not complete the request.
func WhiskError(msg string) Response {
	return Response{
		Status: ResponseStatusWhiskError,
		Result: map[string]interface{}{"error": msg},
	}
}

// Success builds a response carrying the result of a real execution.
func Success(result map[string]interface{}) Response {
	return Response{Status: ResponseStatusSuccess, Result: result}
}

// Activation is the terminal record of one activation attempt. Records
// synthesized by the failure path carry the same shape as records produced by
// real execution so that downstream consumers cannot tell them apart.
type Activation struct {
	ActivationID  string    `json:"activationId"`
	TransactionID string    `json:"transactionId,omitempty"`
	Namespace     string    `json:"namespace"`
	Subject       string    `json:"subject"`
	ActionName    string    `json:"actionName"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Response      Response  `json:"response"`
	Logs          []string  `json:"logs,omitempty"`
	DurationMs    int64     `json:"durationMs"`
}

// CompletionMessage is the combined acknowledgment-and-result notice sent
// back to the originating controller instance.
type CompletionMessage struct {
	TransactionID string     `json:"transactionId,omitempty"`
	Blocking      bool       `json:"blocking"`
	Subject       string     `json:"subject"`
	Activation    Activation `json:"activation"`
}
