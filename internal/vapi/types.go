package vapi

import (
	"encoding/json"
	"fmt"
)

// Webhook event types dispatched by the assistant platform.
const (
	EventAssistantRequest = "assistant-request"
	EventEndOfCallReport  = "end-of-call-report"
	EventToolCalls        = "tool-calls"
)

// Call-scoped variable keys the platform is expected to forward.
const (
	VarSessionToken = "sessionToken"
	VarUserID       = "userId"

	// MetadataUserID is the legacy fallback location for a direct user ID.
	MetadataUserID = "userId"
)

// Envelope is the top-level webhook request body.
type Envelope struct {
	Message Message `json:"message"`
}

// Message is a single webhook event.
type Message struct {
	Type         string     `json:"type"`
	Call         *Call      `json:"call,omitempty"`
	ToolCallList []ToolCall `json:"toolCallList,omitempty"`
}

// Call carries the platform's call context, including the variable values
// the client attached when starting the call.
type Call struct {
	ID                 string             `json:"id"`
	AssistantOverrides AssistantOverrides `json:"assistantOverrides"`
	Metadata           map[string]any     `json:"metadata,omitempty"`
}

// AssistantOverrides holds the call-scoped variable values.
type AssistantOverrides struct {
	VariableValues map[string]any `json:"variableValues,omitempty"`
}

// Variable returns the named call-scoped variable as a string, or "" when it
// is absent or not a string.
func (c *Call) Variable(key string) string {
	if c == nil {
		return ""
	}
	if v, ok := c.AssistantOverrides.VariableValues[key].(string); ok {
		return v
	}
	return ""
}

// MetadataString returns the named call metadata value as a string, or ""
// when it is absent or not a string.
func (c *Call) MetadataString(key string) string {
	if c == nil {
		return ""
	}
	if v, ok := c.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// ToolCall is one tool invocation within a tool-calls batch. Arguments may
// arrive either as a JSON object or as a JSON-encoded string containing an
// object; NormalizedArguments folds both into one mapping shape.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// NormalizedArguments parses the tool call's arguments into a canonical map.
// Absent arguments normalize to an empty map. Anything that is neither an
// object nor a string containing an object is an error.
func (tc ToolCall) NormalizedArguments() (map[string]any, error) {
	if len(tc.Arguments) == 0 {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal(tc.Arguments, &args); err == nil {
		if args == nil {
			args = map[string]any{}
		}
		return args, nil
	}

	// Some integrations double-encode: a JSON string holding the object.
	var encoded string
	if err := json.Unmarshal(tc.Arguments, &encoded); err != nil {
		return nil, fmt.Errorf("tool arguments are neither an object nor a JSON string: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &args); err != nil {
		return nil, fmt.Errorf("tool arguments string does not contain a JSON object: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// ToolCallResult is the per-tool-call outcome. Result is a nested object
// serialized to text, per the wire protocol.
type ToolCallResult struct {
	ToolCallID string `json:"toolCallId"`
	Name       string `json:"name"`
	Result     string `json:"result"`
}

// SystemMessage re-grounds the conversational context.
type SystemMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the webhook reply. Exactly the fields relevant to the handled
// event type are populated.
type Response struct {
	OK       bool             `json:"ok,omitempty"`
	Results  []ToolCallResult `json:"results,omitempty"`
	Messages []SystemMessage  `json:"messages,omitempty"`
}
