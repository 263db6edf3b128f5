package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tangle-sim/config"
	"tangle-sim/logger"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:           "tangle-sim",
	Short:         "Simulate tangle growth and tip selection consensus metrics",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.SetDefaults(v)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Log file, stderr when empty")

	rootCmd.AddCommand(newServeCmd(), newSimulateCmd())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// bindFlags maps config keys onto the flags of cmd, inherited ones included.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return fmt.Errorf("no flag %q to bind to %s", name, key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %q: %w", name, err)
		}
	}
	return nil
}

// loadConfig binds the logging flags of cmd, reads the config file and
// environment on top of them and initialises the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	err := bindFlags(cmd, map[string]string{
		"log.level":        "log-level",
		"log.app_log_file": "log-file",
	})
	if err != nil {
		return nil, err
	}
	cfg, err := config.FromViper(v, cfgFile)
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(cfg.Log.AppLogFile, cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}
