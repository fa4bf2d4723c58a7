// validate.go: settings validation
package conf

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := getValidator().Struct(settings); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			ve.Errors = append(ve.Errors, translateFieldError(fe))
		}
	}

	ve.Errors = append(ve.Errors, validateModelSettings(&settings.Model)...)
	ve.Errors = append(ve.Errors, validatePriceSettings(&settings.Prices)...)

	if _, err := time.LoadLocation(settings.Advisory.Timezone); err != nil {
		ve.Errors = append(ve.Errors, fmt.Sprintf("advisory.timezone: unknown time zone %q", settings.Advisory.Timezone))
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry.dsn is required when sentry is enabled")
	}

	if err := validateEnvLogLevel(settings.Logging.DefaultLevel); settings.Logging.DefaultLevel != "" && err != nil {
		ve.Errors = append(ve.Errors, "logging.defaultlevel: "+err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateModelSettings(m *ModelSettings) []string {
	var errs []string
	switch m.Backend {
	case BackendTFLite, BackendONNX:
		if m.Path == "" {
			errs = append(errs, fmt.Sprintf("model.path is required for the %s backend", m.Backend))
		}
	case BackendRemote:
		u, err := url.Parse(m.RemoteURL)
		if m.RemoteURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, "model.remoteurl must be an http(s) URL for the remote backend")
		}
	}
	return errs
}

func validatePriceSettings(p *PriceSettings) []string {
	var errs []string
	switch p.Source {
	case SourceCSV, SourceXLSX, SourceSQLite:
		if p.Path == "" {
			errs = append(errs, fmt.Sprintf("prices.path is required for the %s source", p.Source))
		}
	case SourceMySQL:
		if p.MySQL.Database == "" {
			errs = append(errs, "prices.mysql.database is required for the mysql source")
		}
	}
	if (p.Source == SourceSQLite || p.Source == SourceMySQL) && p.Table == "" {
		errs = append(errs, "prices.table is required for sql sources")
	}
	return errs
}

// translateFieldError renders a validator error with the config key path
func translateFieldError(fe validator.FieldError) string {
	key := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Settings."))
	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", key, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", key, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", key, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}
