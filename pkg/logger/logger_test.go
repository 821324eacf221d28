package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return NewWithHandler(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, getLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, getLogLevel("warning"))
	assert.Equal(t, slog.LevelError, getLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, getLogLevel("nonsense"))
}

func TestLogBookingCreatedFields(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.LogBookingCreated(context.Background(), "b-1", "s-1", "u-1", "confirmed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Booking Created", entry["msg"])
	assert.Equal(t, "b-1", entry["booking_id"])
	assert.Equal(t, "s-1", entry["spot_id"])
	assert.Equal(t, "confirmed", entry["status"])
}

func TestSideEffectFailureIsWarning(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.WithRequestID("req-9").LogSideEffectFailure(context.Background(), "audit", "b-2", errors.New("db down"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "req-9", entry["request_id"])
	assert.Equal(t, "db down", entry["error"])
}
