package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/solatis/canvasagent/internal/core/config"
	"github.com/solatis/canvasagent/internal/core/telemetry"
)

// Version is the release version reported by the binary.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:     "canvasagent",
	Short:   "Natural-language canvas command service",
	Long:    `canvasagent turns natural-language drawing commands into batches of renderer operations.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := telemetry.NewLogger(logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, console)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads configuration with the command's flags bound on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	flags.AddFlagSet(cmd.Flags())
	flags.AddFlagSet(cmd.InheritedFlags())

	cfg, err := config.LoadConfig(configFile, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
