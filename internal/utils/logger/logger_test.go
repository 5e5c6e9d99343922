package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLeveledLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := &LeveledLogger{logger: zerolog.New(&buf)}

	l.Warn("retrying request", "url", "http://x/api", "attempt", 2)
	out := buf.String()

	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"url":"http://x/api"`)
	assert.Contains(t, out, `"attempt":2`)
	assert.Contains(t, out, `"message":"retrying request"`)
}

func TestLeveledLogger_OddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := &LeveledLogger{logger: zerolog.New(&buf)}

	l.Error("boom", "dangling")
	assert.Contains(t, buf.String(), `"dangling":"(missing)"`)
}

func TestInitWithLevel_Override(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	InitWithLevel("debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	InitWithLevel("not-a-level")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
