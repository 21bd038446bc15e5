package models

// ExecutionRequest represents one activation handed to the worker pool
// (pushed onto a per-runtime execution queue).
type ExecutionRequest struct {
	ActivationID  string                 `json:"activationId"`
	TransactionID string                 `json:"transactionId,omitempty"`
	ActionName    string                 `json:"actionName"`
	Revision      string                 `json:"revision"`
	Code          string                 `json:"code"`
	Runtime       string                 `json:"runtime"`
	Input         map[string]interface{} `json:"input"`
	MemoryMB      int                    `json:"memoryMb"`
	TimeoutMs     int                    `json:"timeoutMs"`
	// ResultQueue names the queue the worker must report its result on,
	// so results come back to the invoker that holds the feed credit.
	ResultQueue string `json:"resultQueue"`
}

// ExecutionResult represents the outcome a worker reports back on the
// invoker's completed-results queue.
type ExecutionResult struct {
	ActivationID string                 `json:"activationId"`
	Status       string                 `json:"status"`
	Output       map[string]interface{} `json:"output,omitempty"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
	Logs         []string               `json:"logs,omitempty"`
	DurationMs   int64                  `json:"durationMs"`
}

// Worker-reported status values.
const (
	ExecutionStatusSuccess = "SUCCESS"
	ExecutionStatusError   = "ERROR"
	ExecutionStatusTimeout = "TIMEOUT"
)
