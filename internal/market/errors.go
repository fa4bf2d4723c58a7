package market

import (
	"fmt"

	"github.com/aquapredict/aquapredict-go/internal/errors"
)

// NoPriceDataError means no price rows match a region
type NoPriceDataError struct {
	Region string
}

func (e *NoPriceDataError) Error() string {
	return fmt.Sprintf("no price data for region %q", e.Region)
}

// ErrorCategory classifies the error as a missing resource
func (e *NoPriceDataError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryNotFound
}
