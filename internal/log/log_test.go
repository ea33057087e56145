package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, Warn)
	l.Info("hidden")
	l.Warn("shown", "file", "a.pdf")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.Equal(t, "a.pdf", lines[0]["file"])
}

func TestLogger_WithFieldsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, Debug).With(map[string]string{"component": "service"})
	l.Error("failed", "err", errors.New("boom"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "service", lines[0]["component"])
	assert.Equal(t, "boom", lines[0]["err"])
}

func TestLogger_MasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, Debug)
	l.Info("config",
		"api_key", "abcdefghijklmnop",
		"header", "Bearer supersecrettoken",
		"value", "gsk_0123456789abcdef",
		"file", "report.pdf",
	)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "abcd***mnop", lines[0]["api_key"])
	assert.Equal(t, "Bearer supe***oken", lines[0]["header"])
	assert.Equal(t, "gsk_***cdef", lines[0]["value"])
	assert.Equal(t, "report.pdf", lines[0]["file"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, Debug, ParseLevel("DEBUG"))
	assert.Equal(t, Error, ParseLevel(" error "))
	assert.Equal(t, Info, ParseLevel("nonsense"))
}
