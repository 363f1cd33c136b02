package logging

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeUser(t *testing.T) {
	tests := []struct {
		name   string
		userID string
	}{
		{name: "simple id", userID: "u1"},
		{name: "email-like id", userID: "alice@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnonymizeUser(tt.userID)
			assert.True(t, strings.HasPrefix(got, "user:"))
			assert.NotContains(t, got, tt.userID)
			// Stable: same input, same hash
			assert.Equal(t, got, AnonymizeUser(tt.userID))
		})
	}
}

func TestAnonymizeUser_Empty(t *testing.T) {
	assert.Equal(t, "", AnonymizeUser(""))
}

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "<empty>", SanitizeToken(""))

	got := SanitizeToken("super-secret-token")
	assert.Equal(t, "[token:18 chars]", got)
	assert.NotContains(t, got, "secret")
}

func TestErr_NilIsOmittable(t *testing.T) {
	attr := Err(nil)
	assert.Equal(t, slog.KindGroup, attr.Value.Kind())
	assert.Empty(t, attr.Key)
}

func TestErr_NonNil(t *testing.T) {
	attr := Err(assert.AnError)
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, assert.AnError.Error(), attr.Value.String())
}

func TestAttributeHelpers(t *testing.T) {
	assert.Equal(t, KeyOperation, Operation("dispatch").Key)
	assert.Equal(t, KeyEventType, EventType("tool-calls").Key)
	assert.Equal(t, KeyCallID, CallID("call1").Key)
	assert.Equal(t, KeyTool, Tool("get_current_time").Key)
	assert.Equal(t, KeyStatus, Status(StatusSuccess).Key)
}
