// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.bodylimit", "1M")
	v.SetDefault("server.ratelimit", 20.0)
	v.SetDefault("server.rateburst", 40)
	v.SetDefault("server.corsorigins", []string{"*"})
	v.SetDefault("server.legacyroutes", true)
	v.SetDefault("server.shutdowntimeout", 10*time.Second)

	v.SetDefault("model.backend", BackendForest)
	v.SetDefault("model.path", "")
	v.SetDefault("model.codecpath", "")
	v.SetDefault("model.threads", 0)
	v.SetDefault("model.onnxlibrary", "")
	v.SetDefault("model.inputname", "float_input")
	v.SetDefault("model.outputname", "probabilities")
	v.SetDefault("model.remoteurl", "")
	v.SetDefault("model.timeout", 5*time.Second)

	v.SetDefault("prices.source", SourceCSV)
	v.SetDefault("prices.path", "data/india_dataset.csv")
	v.SetDefault("prices.sheet", "")
	v.SetDefault("prices.table", "price_records")
	v.SetDefault("prices.mysql.host", "localhost")
	v.SetDefault("prices.mysql.port", 3306)
	v.SetDefault("prices.mysql.username", "")
	v.SetDefault("prices.mysql.password", "")
	v.SetDefault("prices.mysql.database", "aquapredict")

	v.SetDefault("labels.aliases", []AliasSetting{})

	v.SetDefault("advisory.seed", 0)
	v.SetDefault("advisory.timezone", "Asia/Kolkata")

	v.SetDefault("logging.defaultlevel", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.fileoutput.enabled", false)
	v.SetDefault("logging.fileoutput.path", "logs/aquapredict.log")
	v.SetDefault("logging.fileoutput.level", "info")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.samplerate", 1.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.listen", "")
}
