package logger

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		envValue  string
		expectLog bool
	}{
		{"logs when WGJOIN_DEBUG is set", "1", true},
		{"logs when WGJOIN_DEBUG is any value", "true", true},
		{"silent when WGJOIN_DEBUG is empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(DebugEnv, tt.envValue)

			var buf bytes.Buffer
			l := NewEnvLogger("[test]").(*writerLogger)
			l.out = log.New(&buf, "", 0)
			l.Debug("test message %s", "arg")

			if tt.expectLog {
				assert.Contains(t, buf.String(), "[test] DEBUG: test message arg")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestWriterLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, "[register]", false)

	l.Info("posting to %s", "http://cp")
	l.Warn("peer not configured")
	l.Error("status %d", 500)
	l.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "[register] posting to http://cp")
	assert.Contains(t, out, "[register] WARN: peer not configured")
	assert.Contains(t, out, "[register] ERROR: status 500")
	assert.NotContains(t, out, "hidden")
}

func TestWriterLogger_NoPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, "", true)

	l.Debug("visible")
	l.Info("plain")

	assert.Contains(t, buf.String(), "DEBUG: visible")
	assert.Contains(t, buf.String(), "plain")
}

func TestNoopLogger(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	l := Noop()
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	assert.Empty(t, buf.String())
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("debug %s", "msg")
	l.Info("info %s", "msg")
	l.Warn("warn %s", "msg")
	l.Error("error %s", "msg")

	require.Len(t, l.Messages, 4)
	assert.Equal(t, LogMessage{Level: "debug", Message: "debug msg"}, l.Messages[0])
	assert.Equal(t, LogMessage{Level: "error", Message: "error msg"}, l.Messages[3])

	assert.True(t, l.HasLevel("warn"))
	l.Clear()
	assert.Empty(t, l.Messages)
	assert.False(t, l.HasLevel("warn"))
}

func TestDefault(t *testing.T) {
	original := defaultLogger
	defer func() { defaultLogger = original }()

	assert.NotNil(t, Default())

	buf := NewBufferLogger()
	SetDefault(buf)
	assert.Equal(t, buf, Default())
}
