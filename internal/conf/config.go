// config.go: settings structure and loading for AquaPredict
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aquapredict/aquapredict-go/internal/logger"
)

// Model backends
const (
	BackendForest = "forest"
	BackendTFLite = "tflite"
	BackendONNX   = "onnx"
	BackendRemote = "remote"
)

// Price table sources
const (
	SourceCSV    = "csv"
	SourceXLSX   = "xlsx"
	SourceSQLite = "sqlite"
	SourceMySQL  = "mysql"
)

// ServerSettings contains HTTP server settings
type ServerSettings struct {
	Host            string        // listen address, empty for all interfaces
	Port            int           `validate:"min=1,max=65535"`
	BodyLimit       string        // maximum request body, e.g. "1M"
	RateLimit       float64       `validate:"gte=0"` // requests per second per client, 0 disables
	RateBurst       int           `validate:"gte=0"`
	CORSOrigins     []string      // allowed origins, empty disables CORS
	LegacyRoutes    bool          // also serve the unversioned root paths
	ShutdownTimeout time.Duration `validate:"gte=0"`
}

// ModelSettings selects and configures the species classifier
type ModelSettings struct {
	Backend     string        `validate:"oneof=forest tflite onnx remote"`
	Path        string        // model file, empty uses the bundled forest
	CodecPath   string        // label codec (JSON or YAML), empty uses the built-in codec
	Threads     int           `validate:"gte=0"` // 0 picks from CPU topology
	ONNXLibrary string        // path to the onnxruntime shared library
	InputName   string        // onnx input tensor name
	OutputName  string        // onnx probability tensor name
	RemoteURL   string        // base URL of a remote model server
	Timeout     time.Duration `validate:"gte=0"`
}

// MySQLSettings holds MySQL connection parameters for the price table
type MySQLSettings struct {
	Host     string
	Port     int `validate:"gte=0,lte=65535"`
	Username string
	Password string
	Database string
}

// PriceSettings configures where the market price table is loaded from
type PriceSettings struct {
	Source string `validate:"oneof=csv xlsx sqlite mysql"`
	Path   string // csv, xlsx or sqlite file
	Sheet  string // xlsx sheet, empty for the first sheet
	Table  string // sql table name
	MySQL  MySQLSettings
}

// AliasSetting maps one friendly region name to a canonical region.
// Aliases are a list because viper lowercases map keys.
type AliasSetting struct {
	Name   string `validate:"required"`
	Region string `validate:"required"`
}

// LabelSettings configures region name normalization
type LabelSettings struct {
	Aliases []AliasSetting `validate:"dive"`
}

// AdvisorySettings configures the advisory heuristics
type AdvisorySettings struct {
	Seed     uint64 // fixed random seed, 0 seeds from the clock
	Timezone string // IANA zone for sunrise and sunset, empty is UTC
}

// SentrySettings configures error telemetry
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64 `validate:"gte=0,lte=1"`
}

// MetricsSettings configures the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool
	Path    string // path on the API server
	Listen  string // separate listen address, empty serves on the API server
}

// Settings contains all configuration options for the service
type Settings struct {
	Debug    bool
	Server   ServerSettings
	Model    ModelSettings
	Prices   PriceSettings
	Labels   LabelSettings
	Advisory AdvisorySettings
	Logging  logger.LoggingConfig
	Sentry   SentrySettings
	Metrics  MetricsSettings
}

// NewViper returns a viper instance with defaults, search paths and
// environment bindings applied. Command-line flags may be bound to it
// before calling Decode.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaultConfig(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range GetDefaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	v.SetEnvPrefix("AQUAPREDICT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	return v, nil
}

// ReadConfig reads the config file. A missing file is not an error unless it
// was named explicitly.
func ReadConfig(v *viper.Viper, explicit bool) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	if explicit {
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("fatal error reading config file: %w", err)
}

// Decode unmarshals and validates settings from a prepared viper instance
func Decode(v *viper.Viper) (*Settings, error) {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// Load builds settings from defaults, the optional config file and the environment
func Load(configFile string) (*Settings, error) {
	v, err := NewViper(configFile)
	if err != nil {
		return nil, err
	}
	if err := ReadConfig(v, configFile != ""); err != nil {
		return nil, err
	}
	return Decode(v)
}

// GetDefaultConfigPaths returns the directories searched for config.yaml
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "aquapredict"))
	}
	return append(paths, "/etc/aquapredict")
}

// Address returns the listen address for the HTTP server
func (s *ServerSettings) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
