package classifier

import (
	"fmt"

	"github.com/aquapredict/aquapredict-go/internal/errors"
)

// ModelUnavailableError means the model could not be loaded. The service
// must not start serving when it occurs.
type ModelUnavailableError struct {
	Backend string
	Path    string
	Err     error
}

func (e *ModelUnavailableError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s model unavailable: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("%s model unavailable (%s): %v", e.Backend, e.Path, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// ErrorCategory classifies the error for telemetry
func (e *ModelUnavailableError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryModelLoad
}

// unavailable wraps a load failure with model context
func unavailable(backend, path string, err error) error {
	return errors.New(&ModelUnavailableError{Backend: backend, Path: path, Err: err}).
		Category(errors.CategoryModelLoad).
		ModelContext(path, backend).
		Build()
}
