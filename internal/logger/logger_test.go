package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("loud", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestLoggerWritesJSONWithContext(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("debug", &buf)
	require.NoError(t, err)

	l.AddContext(Ctx{"request_id": "abc"}).Info("query done", Ctx{"rows": 2})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "query done", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "abc", entry["request_id"])
	assert.EqualValues(t, 2, entry["rows"])
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", &buf)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestFromContext(t *testing.T) {
	fallback := Discard()
	assert.Equal(t, fallback, FromContext(context.Background(), fallback))

	scoped := fallback.AddContext(Ctx{"request_id": "x"})
	ctx := WithContext(context.Background(), scoped)
	assert.Equal(t, scoped, FromContext(ctx, fallback))
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("info", &buf)
	require.NoError(t, err)

	scoped := l.WithRequestID("req-42")
	scoped.Warn("slow query", Ctx{"duration_ms": 1500})
	l.Info("untagged")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var tagged, plain map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &tagged))
	require.NoError(t, json.Unmarshal(lines[1], &plain))

	assert.Equal(t, "req-42", tagged["request_id"])
	assert.Equal(t, "warning", tagged["level"])
	assert.EqualValues(t, 1500, tagged["duration_ms"])
	assert.NotContains(t, plain, "request_id")
}
