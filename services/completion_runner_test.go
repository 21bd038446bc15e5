package services

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umassos/openwhisk/models"
)

func newCompletionFixture() (*CompletionRunner, *PendingRegistry, *fakeFeed, *fakeAck, *fakeRecorder) {
	logger := log.New(io.Discard)
	feed := &fakeFeed{}
	ack := &fakeAck{}
	recorder := &fakeRecorder{}
	pending := NewPendingRegistry()
	reporter := NewCompletionReporter(feed, ack, recorder, logger)
	runner := NewCompletionRunner(nil, "results:test", pending, reporter, logger)
	return runner, pending, feed, ack, recorder
}

func TestHandleResult_RunsTriadOnce(t *testing.T) {
	runner, pending, feed, ack, recorder := newCompletionFixture()
	pending.Add(systemMessage())

	payload, err := json.Marshal(models.ExecutionResult{
		ActivationID: "a-1",
		Status:       models.ExecutionStatusSuccess,
		Output:       map[string]interface{}{"answer": "ok"},
		DurationMs:   12,
	})
	require.NoError(t, err)

	runner.handleResult(context.Background(), payload)

	assert.Equal(t, 1, feed.releases, "worker completion returns the parked credit")
	require.Len(t, ack.acks, 1)
	require.Len(t, recorder.records, 1)
	assert.Equal(t, models.ResponseStatusSuccess, recorder.records[0].Response.Status)
	assert.Zero(t, pending.Len())

	// A replayed result finds no parked message and must not double-report.
	runner.handleResult(context.Background(), payload)
	assert.Equal(t, 1, feed.releases)
	assert.Len(t, recorder.records, 1)
}

func TestHandleResult_UnknownActivationIsIgnored(t *testing.T) {
	runner, _, feed, ack, recorder := newCompletionFixture()

	payload, err := json.Marshal(models.ExecutionResult{ActivationID: "ghost", Status: models.ExecutionStatusError})
	require.NoError(t, err)

	runner.handleResult(context.Background(), payload)
	assert.Zero(t, feed.releases)
	assert.Empty(t, ack.acks)
	assert.Empty(t, recorder.records)
}

func TestActivationFromResult_StatusMapping(t *testing.T) {
	msg := systemMessage()

	success := activationFromResult(msg, &models.ExecutionResult{
		Status:     models.ExecutionStatusSuccess,
		Output:     map[string]interface{}{"n": 1},
		DurationMs: 100,
	})
	assert.Equal(t, models.ResponseStatusSuccess, success.Response.Status)

	timeout := activationFromResult(msg, &models.ExecutionResult{
		Status:     models.ExecutionStatusTimeout,
		DurationMs: 60000,
	})
	assert.Equal(t, models.ResponseStatusApplicationError, timeout.Response.Status)
	assert.Equal(t, "action exceeded its time limit", timeout.Response.Result["error"])

	failed := activationFromResult(msg, &models.ExecutionResult{
		Status:       models.ExecutionStatusError,
		ErrorMessage: "stack trace",
	})
	assert.Equal(t, models.ResponseStatusApplicationError, failed.Response.Status)
	assert.Equal(t, "stack trace", failed.Response.Result["error"])

	assert.Equal(t, int64(100), success.DurationMs)
	assert.Equal(t, msg.ActivationID, success.ActivationID)
	assert.True(t, success.End.After(success.Start) || success.End.Equal(success.Start))
}
