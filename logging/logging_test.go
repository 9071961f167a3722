package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(zapcore.InfoLevel, &buf)

	log.Debug("hidden")
	log.Info("coverage loaded", zap.Int("files", 3))

	assert.Equal(t, "info\tllmtest\tcoverage loaded\t{\"files\": 3}\n", buf.String())
}

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(zapcore.ErrorLevel, &buf)
	log.Warn("ignored")
	assert.Empty(t, buf.String())

	log.Error("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNop(t *testing.T) {
	Nop().Error("nothing happens")
}
