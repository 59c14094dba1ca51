package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/config"
)

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LoggerConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)

	l, err := New(config.LoggerConfig{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestLogTaskActionCarriesTaskID(t *testing.T) {
	l, logs := observed(zapcore.InfoLevel)

	l.WithComponent("task_service").WithTaskID("task-1").LogTaskAction("update", map[string]interface{}{"completed": true})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Task action", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "task-1", fields["task_id"])
	assert.Equal(t, "update", fields["action"])
	assert.Equal(t, true, fields["completed"])
	assert.Equal(t, "task_service", fields["component"])
}

func TestWithError(t *testing.T) {
	l, logs := observed(zapcore.WarnLevel)

	l.WithRequestID("req-1").WithError(errors.New("boom")).Warn("failed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestLogCalendarOperationLevels(t *testing.T) {
	l, logs := observed(zapcore.InfoLevel)

	l.LogCalendarOperation("insert_event", 12, nil)
	l.LogCalendarOperation("insert_event", 30, errors.New("quota"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "quota", entries[1].ContextMap()["error"])
}
