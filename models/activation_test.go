package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeActivationMessage_Valid(t *testing.T) {
	payload := []byte(`{
		"activationId": "a-1",
		"transactionId": "t-1",
		"namespace": "whisk.system",
		"subject": "alice",
		"action": {"namespace": "whisk.system", "name": "echo", "revision": "1-abc"},
		"blocking": true,
		"routingKey": "controller0",
		"content": {"payload": "hello"}
	}`)

	msg, err := DecodeActivationMessage(payload)
	require.NoError(t, err)

	assert.Equal(t, "a-1", msg.ActivationID)
	assert.Equal(t, "t-1", msg.TransactionID)
	assert.Equal(t, "whisk.system", msg.Namespace)
	assert.Equal(t, "alice", msg.Subject)
	assert.Equal(t, "whisk.system/echo", msg.Action.FullyQualified())
	assert.Equal(t, "1-abc", msg.Action.Revision)
	assert.True(t, msg.Blocking)
	assert.Equal(t, "controller0", msg.RoutingKey)
	assert.Equal(t, "hello", msg.Content["payload"])
}

func TestDecodeActivationMessage_DefaultsActionNamespace(t *testing.T) {
	payload := []byte(`{
		"activationId": "a-2",
		"namespace": "guest",
		"subject": "bob",
		"action": {"name": "hello"},
		"routingKey": "controller1"
	}`)

	msg, err := DecodeActivationMessage(payload)
	require.NoError(t, err)

	assert.Equal(t, "guest", msg.Action.Namespace)
	assert.NotEmpty(t, msg.TransactionID, "missing transaction ids are stamped at decode time")
}

func TestDecodeActivationMessage_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"invalid json":       []byte(`{"activationId": `),
		"missing activation": []byte(`{"namespace": "guest", "subject": "bob", "action": {"name": "x"}}`),
		"missing namespace":  []byte(`{"activationId": "a", "subject": "bob", "action": {"name": "x"}}`),
		"missing subject":    []byte(`{"activationId": "a", "namespace": "guest", "action": {"name": "x"}}`),
		"missing action":     []byte(`{"activationId": "a", "namespace": "guest", "subject": "bob"}`),
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeActivationMessage(payload)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}

func TestResponseConstructors(t *testing.T) {
	app := ApplicationError("namespace blocked")
	assert.Equal(t, ResponseStatusApplicationError, app.Status)
	assert.Equal(t, "namespace blocked", app.Result["error"])

	whisk := WhiskError("boom")
	assert.Equal(t, ResponseStatusWhiskError, whisk.Status)
	assert.Equal(t, "boom", whisk.Result["error"])

	ok := Success(map[string]interface{}{"answer": 42})
	assert.Equal(t, ResponseStatusSuccess, ok.Status)
	assert.Equal(t, 42, ok.Result["answer"])
}

func TestActionExecutable(t *testing.T) {
	executable := &Action{Namespace: "guest", Name: "echo", Runtime: "python3.11", CodeKey: "code/echo.py"}
	assert.True(t, executable.Executable())

	stub := &Action{Namespace: "guest", Name: "stub"}
	assert.False(t, stub.Executable())

	noCode := &Action{Namespace: "guest", Name: "half", Runtime: "python3.11"}
	assert.False(t, noCode.Executable())
}
