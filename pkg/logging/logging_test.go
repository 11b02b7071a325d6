package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"DEBUG", LevelDebug},
		{"Warning", LevelWarn},
		{" error ", LevelError},
		{"info+2", LevelInfo + 2},
		{"", LevelInfo},
		{"trace", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat("yaml"))
	assert.Equal(t, FormatText, ParseFormat(""))
}

func TestNew_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Format: FormatJSON, Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept", "operation", "sayHello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "sayHello", rec["operation"])
}

func TestNew_Tee(t *testing.T) {
	var console, file bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &console, Tee: &file}).With("component", "transport")

	logger.Info("request", "status", 200)

	assert.Contains(t, console.String(), "msg=request")
	assert.Contains(t, console.String(), "component=transport")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &rec))
	assert.Equal(t, "transport", rec["component"])
	assert.EqualValues(t, 200, rec["status"])
}

func TestMultiHandler_Enabled(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: LevelError}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: LevelDebug}),
	)
	ctx := context.Background()
	assert.True(t, h.Enabled(ctx, LevelDebug))

	slog.New(h).WithGroup("soap").Debug("only b", "op", "x")
	assert.Empty(t, a.String())
	assert.Contains(t, b.String(), "soap.op=x")
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf})

	ctx := NewContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx, nil))
	assert.Same(t, l, FromContext(context.Background(), l))
	assert.NotNil(t, FromContext(context.Background(), nil))
}

func TestNop(t *testing.T) {
	assert.False(t, Nop().Enabled(context.Background(), LevelError))
}
