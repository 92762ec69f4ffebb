package server

import (
	"fmt"

	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

// cronLogger routes cron scheduler events to the service logger.
type cronLogger struct {
	logger *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("[cron] "+msg, pairs(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := pairs(keysAndValues)
	fields["error"] = err.Error()
	l.logger.Error("[cron] "+msg, fields)
}

func pairs(keysAndValues []interface{}) map[string]string {
	fields := make(map[string]string, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = fmt.Sprint(keysAndValues[i+1])
	}
	return fields
}
