package labels

import (
	"sync"

	"github.com/aquapredict/aquapredict-go/internal/logger"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the labels package logger scoped to the labels module.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("labels")
	})
	return serviceLogger
}
