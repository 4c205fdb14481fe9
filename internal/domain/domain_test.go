package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAction_IsApproveLike(t *testing.T) {
	tests := []struct {
		action UserAction
		want   bool
	}{
		{ActionApprove, true},
		{ActionSubmit, true},
		{ActionReject, false},
		{UserAction("Comment"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.IsApproveLike())
		})
	}
}

func TestProcessStatus_IsTerminal(t *testing.T) {
	assert.False(t, ProcessStatusActive.IsTerminal())
	assert.True(t, ProcessStatusCompleted.IsTerminal())
	assert.True(t, ProcessStatusRejected.IsTerminal())
}

func TestProcess_MarkCompleted(t *testing.T) {
	p := &Process{Status: ProcessStatusActive}
	p.MarkCompleted()

	assert.Equal(t, ProcessStatusCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)
	assert.True(t, p.IsFinished())
}

func TestProcess_MarkRejected(t *testing.T) {
	p := &Process{Status: ProcessStatusActive}
	p.MarkRejected()

	assert.Equal(t, ProcessStatusRejected, p.Status)
	require.NotNil(t, p.CompletedAt)
}

// --- DecodeValidationData Tests ---

func TestDecodeValidationData_API(t *testing.T) {
	raw := json.RawMessage(`{"url": "http://example.com/{{processId}}", "headers": {"X-Key": "1"}}`)

	data, err := DecodeValidationData(ValidationTypeAPI, raw)
	require.NoError(t, err)

	api, ok := data.(*APIValidationData)
	require.True(t, ok, "expected *APIValidationData, got %T", data)
	assert.Equal(t, "http://example.com/{{processId}}", api.URL)
	assert.Equal(t, "1", api.Headers["X-Key"])
}

func TestDecodeValidationData_Errors(t *testing.T) {
	tests := []struct {
		name string
		typ  ValidationType
		raw  string
	}{
		{name: "api without url", typ: ValidationTypeAPI, raw: `{"method": "POST"}`},
		{name: "api blank url", typ: ValidationTypeAPI, raw: `{"url": "  "}`},
		{name: "database without connection", typ: ValidationTypeDatabase, raw: `{"query": "select true"}`},
		{name: "database without query", typ: ValidationTypeDatabase, raw: `{"connection_name": "main"}`},
		{name: "expression empty", typ: ValidationTypeExpression, raw: `{"expression": ""}`},
		{name: "expression syntax", typ: ValidationTypeExpression, raw: `{"expression": "action == "}`},
		{name: "expression not bool", typ: ValidationTypeExpression, raw: `{"expression": "1 + 1"}`},
		{name: "expression unknown variable", typ: ValidationTypeExpression, raw: `{"expression": "amount > 10"}`},
		{name: "api unknown field", typ: ValidationTypeAPI, raw: `{"url": "http://x", "payloadTemplate": "{\"p\": 1}"}`},
		{name: "database unknown field", typ: ValidationTypeDatabase, raw: `{"connectionName": "main", "query": "select true"}`},
		{name: "trailing data", typ: ValidationTypeAPI, raw: `{"url": "http://x"} {"url": "http://y"}`},
		{name: "unknown type", typ: ValidationType("Ldap"), raw: `{}`},
		{name: "malformed json", typ: ValidationTypeAPI, raw: `{"url": `},
		{name: "empty data", typ: ValidationTypeAPI, raw: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeValidationData(tt.typ, json.RawMessage(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidValidationData), "got %v", err)
		})
	}
}

func TestDecodeValidationData_Expression(t *testing.T) {
	raw := json.RawMessage(`{"expression": "action == \"Approve\""}`)

	data, err := DecodeValidationData(ValidationTypeExpression, raw)
	require.NoError(t, err)
	assert.Equal(t, ValidationTypeExpression, data.Type())
}

func TestDecodeValidationData_ExpressionUsesContextVariables(t *testing.T) {
	raw := json.RawMessage(`{"expression": "processId > 0 && stepId > 0 && userId != \"\" && action == \"Approve\" && stepName == \"Review\""}`)

	_, err := DecodeValidationData(ValidationTypeExpression, raw)
	require.NoError(t, err)
}

func TestAPIValidationData_Scheme(t *testing.T) {
	assert.Equal(t, "Bearer", (&APIValidationData{}).Scheme())
	assert.Equal(t, "Basic", (&APIValidationData{AuthScheme: " Basic "}).Scheme())
}
