package logger

import (
	"sync"

	"github.com/mstgnz/signpay/infra/config"
	"github.com/mstgnz/signpay/infra/opensearch"
)

const (
	serviceName    = "signpay"
	serviceVersion = "1.0.0"
)

var (
	globalLogger *SystemLogger
	once         sync.Once
	fallbackOnce sync.Once
)

// InitGlobalLogger configures the process logger from the app config. Only
// the first call has any effect. Production writes JSON lines to stdout so
// log shippers can parse them; development logs everything down to debug.
func InitGlobalLogger(openSearchLogger *opensearch.Logger) {
	once.Do(func() {
		cfg := config.GetAppConfig()

		loggerConfig := SystemLoggerConfig{
			EnableConsole:    true,
			EnableOpenSearch: openSearchLogger != nil,
			JSONConsole:      cfg.Environment == "production",
			MinLevel:         ParseLevel(cfg.LoggingLevel),
			Service:          serviceName,
			Version:          serviceVersion,
			Environment:      cfg.Environment,
		}
		if cfg.Environment == "development" {
			loggerConfig.MinLevel = LevelDebug
		}

		globalLogger = NewSystemLogger(openSearchLogger, loggerConfig)
	})
}

// GetGlobalLogger returns the process logger, a console-only one until
// InitGlobalLogger runs
func GetGlobalLogger() *SystemLogger {
	if globalLogger == nil {
		fallbackOnce.Do(func() {
			if globalLogger == nil {
				globalLogger = NewSystemLogger(nil, SystemLoggerConfig{
					EnableConsole: true,
					MinLevel:      LevelInfo,
					Service:       serviceName,
					Version:       serviceVersion,
					Environment:   "development",
				})
			}
		})
	}
	return globalLogger
}

func Debug(message string, ctx ...LogContext) {
	GetGlobalLogger().Debug(message, ctx...)
}

func Info(message string, ctx ...LogContext) {
	GetGlobalLogger().Info(message, ctx...)
}

func Warn(message string, ctx ...LogContext) {
	GetGlobalLogger().Warn(message, ctx...)
}

func Error(message string, err error, ctx ...LogContext) {
	GetGlobalLogger().Error(message, err, ctx...)
}

// Fatal logs and exits the process
func Fatal(message string, err error, ctx ...LogContext) {
	GetGlobalLogger().Fatal(message, err, ctx...)
}

// WithSession returns a logger scoped to one checkout session
func WithSession(sessionID string) *ContextLogger {
	return GetGlobalLogger().WithContext(LogContext{SessionID: sessionID})
}

// WithProvider returns a logger scoped to a payment provider
func WithProvider(provider string) *ContextLogger {
	return GetGlobalLogger().WithContext(LogContext{Provider: provider})
}
