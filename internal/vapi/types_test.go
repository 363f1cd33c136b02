package vapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizedArguments_Object(t *testing.T) {
	tc := ToolCall{Arguments: json.RawMessage(`{"title":"Standup","startIso":"2026-09-01T09:00:00Z"}`)}

	args, err := tc.NormalizedArguments()
	require.NoError(t, err)
	assert.Equal(t, "Standup", args["title"])
	assert.Equal(t, "2026-09-01T09:00:00Z", args["startIso"])
}

func TestNormalizedArguments_DoubleEncodedString(t *testing.T) {
	tc := ToolCall{Arguments: json.RawMessage(`"{\"timezone\":\"America/New_York\"}"`)}

	args, err := tc.NormalizedArguments()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", args["timezone"])
}

func TestNormalizedArguments_Absent(t *testing.T) {
	args, err := ToolCall{}.NormalizedArguments()
	require.NoError(t, err)
	assert.NotNil(t, args)
	assert.Empty(t, args)
}

func TestNormalizedArguments_NullObject(t *testing.T) {
	args, err := ToolCall{Arguments: json.RawMessage(`null`)}.NormalizedArguments()
	require.NoError(t, err)
	assert.NotNil(t, args)
	assert.Empty(t, args)
}

func TestNormalizedArguments_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"array", `[1,2,3]`},
		{"number", `42`},
		{"string not containing an object", `"not json at all"`},
		{"truncated object", `{"title":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToolCall{Arguments: json.RawMessage(tt.raw)}.NormalizedArguments()
			assert.Error(t, err)
		})
	}
}

func TestCallVariable_NilSafe(t *testing.T) {
	var call *Call
	assert.Empty(t, call.Variable(VarSessionToken))
	assert.Empty(t, call.MetadataString(MetadataUserID))

	call = &Call{
		AssistantOverrides: AssistantOverrides{
			VariableValues: map[string]any{
				VarUserID: "alice@example.com",
				"count":   3,
			},
		},
	}
	assert.Equal(t, "alice@example.com", call.Variable(VarUserID))
	assert.Empty(t, call.Variable("count"), "non-string variables are ignored")
}

func TestResponseSerialization(t *testing.T) {
	data, err := json.Marshal(&Response{OK: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	data, err = json.Marshal(&Response{
		Results:  []ToolCallResult{{ToolCallID: "tc-1", Name: ToolGetCurrentTime, Result: "{}"}},
		Messages: []SystemMessage{{Role: "system", Content: "now"}},
	})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"ok"`)
	assert.Contains(t, string(data), `"toolCallId":"tc-1"`)
}
