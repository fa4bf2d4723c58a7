// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicit environment bindings. Every other key is
// still reachable through the AQUAPREDICT_ prefix, e.g. AQUAPREDICT_SERVER_HOST.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"server.port", "PORT", validateEnvPort},
		{"server.port", "AQUAPREDICT_PORT", validateEnvPort},
		{"model.backend", "AQUAPREDICT_MODEL_BACKEND", validateEnvBackend},
		{"model.path", "AQUAPREDICT_MODEL_PATH", validateEnvPath},
		{"model.codecpath", "AQUAPREDICT_CODEC_PATH", validateEnvPath},
		{"model.threads", "AQUAPREDICT_THREADS", validateEnvNonNegativeInt},
		{"model.onnxlibrary", "ONNXRUNTIME_LIB", validateEnvPath},
		{"prices.source", "AQUAPREDICT_PRICES_SOURCE", validateEnvPriceSource},
		{"prices.path", "AQUAPREDICT_PRICES_PATH", validateEnvPath},
		{"prices.mysql.password", "AQUAPREDICT_MYSQL_PASSWORD", nil},
		{"logging.defaultlevel", "AQUAPREDICT_LOG_LEVEL", validateEnvLogLevel},
		{"sentry.dsn", "SENTRY_DSN", nil},
		{"debug", "AQUAPREDICT_DEBUG", validateEnvBool},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string
	keys := make(map[string][]string)

	for _, binding := range getEnvBindings() {
		keys[binding.ConfigKey] = append(keys[binding.ConfigKey], binding.EnvVar)

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	// BindEnv replaces earlier bindings for a key, so all names go in one call.
	// Later names in the table win over earlier ones.
	for key, envVars := range keys {
		args := append([]string{key}, reverse(envVars)...)
		if err := v.BindEnv(args...); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", key, err))
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func reverse(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("must be non-negative, got %d", n)
	}
	return nil
}

func validateEnvBackend(value string) error {
	switch value {
	case BackendForest, BackendTFLite, BackendONNX, BackendRemote:
		return nil
	}
	return fmt.Errorf("backend must be one of forest, tflite, onnx, remote")
}

func validateEnvPriceSource(value string) error {
	switch value {
	case SourceCSV, SourceXLSX, SourceSQLite, SourceMySQL:
		return nil
	}
	return fmt.Errorf("price source must be one of csv, xlsx, sqlite, mysql")
}

func validateEnvLogLevel(value string) error {
	switch value {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("log level must be one of trace, debug, info, warn, error")
}

func validateEnvPath(value string) error {
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("path contains a NUL byte")
	}
	return nil
}
