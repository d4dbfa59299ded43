package logger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upkyp/upkyp/internal/observability/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func captureGlobalLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestGormLoggerLogsSlowQueriesAsWarnings(t *testing.T) {
	logs := captureGlobalLogs(t)
	l := logger.NewGormLogger(logger.DefaultGormLoggerConfig())

	begin := time.Now().Add(-time.Second)
	l.Trace(context.Background(), begin, func() (string, int64) {
		return "SELECT * FROM lease_agreements WHERE agreement_id = ?", 1
	}, nil)

	entries := logs.FilterMessage("gorm.query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "SELECT", fields["operation"])
	assert.Equal(t, int64(1), fields["rows_affected"])
}

func TestGormLoggerLogsQueryErrors(t *testing.T) {
	logs := captureGlobalLogs(t)
	l := logger.NewGormLogger(logger.DefaultGormLoggerConfig())

	queryErr := errors.New("constraint violated")
	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "INSERT INTO billings (id) VALUES (?)", 0
	}, queryErr)

	entries := logs.FilterMessage("gorm.query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, "INSERT", entries[0].ContextMap()["operation"])
}

func TestGormLoggerIgnoresRecordNotFoundWhenConfigured(t *testing.T) {
	logs := captureGlobalLogs(t)
	cfg := logger.DefaultGormLoggerConfig()
	cfg.IgnoreRecordNotFound = true
	l := logger.NewGormLogger(cfg)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 0
	}, gormlogger.ErrRecordNotFound)

	assert.Empty(t, logs.FilterMessage("gorm.query").All())
}

func TestGormLoggerLogModeReturnsCopy(t *testing.T) {
	logs := captureGlobalLogs(t)
	base := logger.NewGormLogger(logger.GormLoggerConfig{Level: gormlogger.Warn})
	verbose := base.LogMode(gormlogger.Info)

	base.Info(context.Background(), "suppressed")
	verbose.Info(context.Background(), "gorm info")

	assert.Empty(t, logs.FilterMessage("suppressed").All())
	assert.Len(t, logs.FilterMessage("gorm info").All(), 1)
}
