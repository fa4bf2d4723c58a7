package labels

import (
	"fmt"

	"github.com/aquapredict/aquapredict-go/internal/errors"
)

// Fields that can fail to encode
const (
	FieldRegion = "region"
	FieldMonth  = "month"
)

// EncodingError reports a region or month that has no code in the label codec.
// It is a client error: the request named something the model never saw.
type EncodingError struct {
	Field      string // FieldRegion or FieldMonth
	Raw        string // region as supplied by the caller
	Normalized string // region after normalization
	Month      string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding failed for region/month - region:%s -> %s, month:%s",
		e.Raw, e.Normalized, e.Month)
}

// ErrorCategory lets the errors package classify encoding failures
func (e *EncodingError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryEncoding
}
