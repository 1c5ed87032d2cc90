package logger

import (
	"sync"
	"testing"

	"github.com/mstgnz/signpay/infra/config"
	"github.com/stretchr/testify/assert"
)

func resetGlobalLogger(t *testing.T) {
	t.Helper()
	globalLogger = nil
	once = sync.Once{}
	fallbackOnce = sync.Once{}
	t.Cleanup(func() {
		globalLogger = nil
		once = sync.Once{}
		fallbackOnce = sync.Once{}
	})
}

func TestInitGlobalLogger(t *testing.T) {
	resetGlobalLogger(t)

	InitGlobalLogger(nil)

	assert.NotNil(t, globalLogger)
	assert.Equal(t, "signpay", globalLogger.service)
	assert.False(t, globalLogger.enableOpenSearch)
}

func TestInitGlobalLogger_OnlyOnce(t *testing.T) {
	resetGlobalLogger(t)

	InitGlobalLogger(nil)
	first := globalLogger
	InitGlobalLogger(nil)

	assert.Same(t, first, globalLogger)
}

func TestInitGlobalLogger_DevelopmentUsesDebug(t *testing.T) {
	resetGlobalLogger(t)
	cfg := config.GetAppConfig()
	previous := cfg.Environment
	cfg.Environment = "development"
	t.Cleanup(func() { cfg.Environment = previous })

	InitGlobalLogger(nil)

	assert.Equal(t, LevelDebug, globalLogger.minLevel)
}

func TestInitGlobalLogger_ProductionUsesJSON(t *testing.T) {
	resetGlobalLogger(t)
	cfg := config.GetAppConfig()
	previous := cfg.Environment
	cfg.Environment = "production"
	t.Cleanup(func() { cfg.Environment = previous })

	InitGlobalLogger(nil)

	assert.True(t, globalLogger.jsonConsole)
}

func TestGetGlobalLogger_Fallback(t *testing.T) {
	resetGlobalLogger(t)

	logger := GetGlobalLogger()

	assert.NotNil(t, logger)
	assert.Equal(t, "signpay", logger.service)
	assert.Equal(t, LevelInfo, logger.minLevel)
}

func TestGlobalHelpers(t *testing.T) {
	resetGlobalLogger(t)
	InitGlobalLogger(nil)
	globalLogger.enableConsole = false

	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error", nil, LogContext{OrderID: "42"})

	assert.Equal(t, "sess-1", WithSession("sess-1").context.SessionID)
	assert.Equal(t, "resurs", WithProvider("resurs").context.Provider)
}
