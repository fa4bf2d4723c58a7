package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aquapredict/aquapredict-go/cmd/labels"
	"github.com/aquapredict/aquapredict-go/cmd/normalize"
	"github.com/aquapredict/aquapredict-go/cmd/recommend"
	"github.com/aquapredict/aquapredict-go/cmd/serve"
	"github.com/aquapredict/aquapredict-go/internal/buildinfo"
	"github.com/aquapredict/aquapredict-go/internal/conf"
	"github.com/aquapredict/aquapredict-go/internal/logger"
)

// RootCommand creates and returns the root command. Subcommands share
// settings, which are filled in before any of them runs.
func RootCommand(build *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "aquapredict",
		Short:         "AquaPredict fish species prediction and market recommendation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default searches ., ~/.config/aquapredict, /etc/aquapredict)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("prices", "", "Price table file")
	rootCmd.PersistentFlags().String("model", "", "Model file, empty uses the bundled forest")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.String())
		},
	}

	rootCmd.AddCommand(
		serve.Command(settings, build),
		labels.Command(settings),
		normalize.Command(settings),
		recommend.Command(settings),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		if err := loadSettings(cmd, configFile, settings); err != nil {
			return err
		}
		return initLogging(settings)
	}

	return rootCmd
}

// loadSettings reads config file, environment and flags, in rising precedence
func loadSettings(cmd *cobra.Command, configFile string, settings *conf.Settings) error {
	v, err := conf.NewViper(configFile)
	if err != nil {
		return err
	}

	bindings := map[string]string{
		"debug":                "debug",
		"logging.defaultlevel": "log-level",
		"prices.path":          "prices",
		"model.path":           "model",
	}
	for key, flag := range bindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}

	if err := conf.ReadConfig(v, configFile != ""); err != nil {
		return err
	}

	decoded, err := conf.Decode(v)
	if err != nil {
		return err
	}
	*settings = *decoded
	return nil
}

// initLogging installs the global logger described by settings
func initLogging(settings *conf.Settings) error {
	if settings.Debug && settings.Logging.DefaultLevel != "trace" {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}
