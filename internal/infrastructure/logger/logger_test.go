package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taskmaster/daybook/internal/infrastructure/config"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LoggerConfig{Level: "chatty", Format: "json"})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	log, err := New(config.LoggerConfig{Level: "debug", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, log.SugaredLogger)
}

func TestLogSyncEvent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).WithComponent("sync")

	log.LogSyncEvent("remote", 3, 12.5, nil)
	log.LogSyncEvent("remote", 4, 800, errors.New("deadline exceeded"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)

	fields := entries[1].ContextMap()
	assert.Equal(t, "sync", fields["component"])
	assert.Equal(t, "deadline exceeded", fields["error"])
	assert.EqualValues(t, 4, fields["revision"])
}

func TestWithErrorNil(t *testing.T) {
	log := Nop()
	assert.Same(t, log, log.WithError(nil))
}
