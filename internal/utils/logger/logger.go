package logger

import (
	"go.uber.org/zap"

	"github.com/dwarvesf/chain-scanner/internal/types/environments"
)

type Logger struct {
	wrappedLogger *zap.Logger
}

func New(env environments.Environment) *Logger {
	var cfg zap.Config

	switch env {
	case environments.Development:
		cfg = newDevelopmentLoggerConfig()
	case environments.Test:
		cfg = newTestLoggerConfig()
	case environments.Staging:
		cfg = newStagingLoggerConfig()
	case environments.Production:
		cfg = newProductionLoggerConfig()
	default:
		cfg = newProductionLoggerConfig()
	}

	zapLogger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	return &Logger{
		wrappedLogger: zapLogger,
	}
}

// With returns a child logger that stamps every entry with the given fields,
// e.g. the chain a scanner works on.
func (l *Logger) With(fields map[string]string) *Logger {
	return &Logger{
		wrappedLogger: l.wrappedLogger.With(transformStrMapToFields(fields)...),
	}
}

func (l *Logger) Debug(msg string, inputFields ...map[string]string) {
	l.wrappedLogger.Debug(msg, fieldsOf(inputFields)...)
}

func (l *Logger) Info(msg string, inputFields ...map[string]string) {
	l.wrappedLogger.Info(msg, fieldsOf(inputFields)...)
}

func (l *Logger) Warn(msg string, inputFields ...map[string]string) {
	l.wrappedLogger.Warn(msg, fieldsOf(inputFields)...)
}

func (l *Logger) Error(msg string, inputFields ...map[string]string) {
	l.wrappedLogger.Error(msg, fieldsOf(inputFields)...)
}

func (l *Logger) Fatal(msg string, inputFields ...map[string]string) {
	l.wrappedLogger.Fatal(msg, fieldsOf(inputFields)...)
}

// Sync flushes buffered entries, called on shutdown.
func (l *Logger) Sync() {
	_ = l.wrappedLogger.Sync()
}

func fieldsOf(inputFields []map[string]string) []zap.Field {
	if len(inputFields) == 0 {
		return []zap.Field{}
	}
	return transformStrMapToFields(inputFields[0])
}

func transformStrMapToFields(strMap map[string]string) []zap.Field {
	fields := []zap.Field{}
	for k, v := range strMap {
		fields = append(fields, zap.String(k, v))
	}

	return fields
}
