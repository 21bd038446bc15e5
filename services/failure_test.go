package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umassos/openwhisk/models"
)

func TestResponseFor_MappingTable(t *testing.T) {
	cases := []struct {
		kind    FailureKind
		status  string
		payload string
	}{
		{FailureNamespaceBlocked, models.ResponseStatusApplicationError, "namespace blocked"},
		{FailureActionNotFound, models.ResponseStatusApplicationError, "action removed while invoking"},
		{FailureActionMismatch, models.ResponseStatusWhiskError, "action mismatch while invoking"},
		{FailureFetch, models.ResponseStatusWhiskError, "generic fetch error while invoking"},
		{FailureNonExecutable, models.ResponseStatusWhiskError, "action could not be executed"},
		{FailureUnsupportedRoute, models.ResponseStatusWhiskError, "no execution route for activation"},
		{FailureSubmit, models.ResponseStatusWhiskError, "failed to submit activation for execution"},
	}

	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			resp := ResponseFor(&DispatchError{Kind: tc.kind})
			assert.Equal(t, tc.status, resp.Status)
			assert.Equal(t, tc.payload, resp.Result["error"])
		})
	}
}

func TestDispatchError_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	derr := dispatchFailure(FailureFetch, cause)

	assert.ErrorIs(t, derr, cause)
	assert.Contains(t, derr.Error(), "fetch error")
	assert.Contains(t, derr.Error(), "connection refused")
}

func TestSynthesizeActivation_CarriesCorrelationData(t *testing.T) {
	msg := &models.ActivationMessage{
		ActivationID:  "a-9",
		TransactionID: "t-9",
		Namespace:     "guest",
		Subject:       "carol",
		Action:        models.ActionRef{Namespace: "guest", Name: "echo", Revision: "2-def"},
	}

	act := SynthesizeActivation(msg, dispatchFailure(FailureActionNotFound, nil))

	assert.Equal(t, "a-9", act.ActivationID)
	assert.Equal(t, "t-9", act.TransactionID)
	assert.Equal(t, "guest", act.Namespace)
	assert.Equal(t, "carol", act.Subject)
	assert.Equal(t, "guest/echo", act.ActionName)
	assert.Equal(t, models.ResponseStatusApplicationError, act.Response.Status)
	assert.False(t, act.Start.IsZero())
	assert.Equal(t, act.Start, act.End)
}

func TestSynthesizeActivation_MappingIsPure(t *testing.T) {
	msg := &models.ActivationMessage{
		ActivationID: "a-10",
		Namespace:    "guest",
		Subject:      "carol",
		Action:       models.ActionRef{Namespace: "guest", Name: "echo"},
	}
	derr := dispatchFailure(FailureActionMismatch, errors.New("schema skew"))

	first := SynthesizeActivation(msg, derr)
	second := SynthesizeActivation(msg, derr)

	require.NotSame(t, first, second)
	assert.Equal(t, first.Response, second.Response)
	assert.Equal(t, first.ActivationID, second.ActivationID)
}
