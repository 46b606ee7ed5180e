package notification

import "github.com/debatetab/debatetab/internal/logger"

// getLogger returns the notification module logger.
func getLogger() logger.Logger {
	return logger.Global().Module("notification")
}
