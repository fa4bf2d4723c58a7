package advisory

import (
	"sync"

	"github.com/aquapredict/aquapredict-go/internal/logger"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the advisory package logger
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("advisory")
	})
	return serviceLogger
}
