package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelInfo)

	var buf bytes.Buffer
	l := New(zapcore.AddSync(&buf))

	l.Debugf("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetLevel(LevelDebug)
	assert.Equal(t, "debug", Level())
	l.Debugw("visible", "node", "p1")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "p1")

	buf.Reset()
	SetLevel("bogus")
	assert.Equal(t, "info", Level())
	l.Debugf("hidden again")
	assert.Empty(t, buf.String())
}
