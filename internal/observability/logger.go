// Package observability provides Prometheus metrics functionality for monitoring AquaPredict.
package observability

import "github.com/aquapredict/aquapredict-go/internal/logger"

// Package-level cached logger instance for efficiency.
// All logging in this package should use this variable.
var log = logger.Global().Module("observability")
