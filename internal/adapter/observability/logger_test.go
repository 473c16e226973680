package observability

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerHumanFormat(t *testing.T) {
	var buf strings.Builder
	l := NewDefaultLogger(LogLevelInfo, LogFormatHuman, &buf)

	l.LogInfo(context.Background(), "run finished", map[string]interface{}{
		"outcome": "approved",
		"pr":      42,
	})

	out := buf.String()
	assert.Contains(t, out, "[INFO] run finished")
	assert.Contains(t, out, "outcome=approved")
	assert.Contains(t, out, "pr=42")
}

func TestDefaultLoggerJSONFormat(t *testing.T) {
	var buf strings.Builder
	l := NewDefaultLogger(LogLevelDebug, LogFormatJSON, &buf)

	l.LogWarning(context.Background(), "budget low", map[string]interface{}{"remaining": 2})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "budget low", entry["message"])
	assert.Equal(t, float64(2), entry["remaining"])
}

func TestDefaultLoggerLevelFiltering(t *testing.T) {
	var buf strings.Builder
	l := NewDefaultLogger(LogLevelError, LogFormatHuman, &buf)

	l.LogDebug(context.Background(), "noise", nil)
	l.LogInfo(context.Background(), "noise", nil)
	l.LogWarning(context.Background(), "noise", nil)
	assert.Empty(t, buf.String())

	l.LogError(context.Background(), "real problem", nil)
	assert.Contains(t, buf.String(), "[ERROR] real problem")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelWarning, ParseLevel("warn"))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("anything"))
}
