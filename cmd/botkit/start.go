package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keepmind9/botkit/internal/command"
	"github.com/keepmind9/botkit/internal/core"
	"github.com/keepmind9/botkit/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	envFiles   []string

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the bot",
		Long:  "Connect to the configured gateway, publish the command set and serve until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := findConfigFile(configFile)
			config, err := core.LoadConfig(path, envFiles...)
			if err != nil {
				return &command.StartupError{Stage: "config", Err: err}
			}

			if err := logger.InitLogger(loggerConfig(config)); err != nil {
				return &command.StartupError{Stage: "logger", Err: err}
			}
			log := logger.GetLogger()

			log.WithFields(logrus.Fields{
				"config_file": path,
				"gateway":     config.Gateway,
				"log_level":   config.Logging.Level,
				"log_file":    config.Logging.File,
			}).Info("logger-initialized")

			client, err := core.NewClient(config, log)
			if err != nil {
				return fatal(log, &command.StartupError{Stage: "client", Err: err})
			}

			engine, err := core.NewEngine(config, client, log)
			if err != nil {
				return fatal(log, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "botkit starting on %s, press Ctrl+C to stop\n", config.Gateway)
			if err := engine.Run(ctx); err != nil {
				return fatal(log, err)
			}

			log.Info("botkit-stopped")
			return nil
		},
	}
)

func loggerConfig(config *core.Config) logger.Config {
	return logger.Config{
		Level:        config.Logging.Level,
		Format:       config.Logging.Format,
		File:         config.Logging.File,
		MaxSize:      config.Logging.MaxSize,
		MaxBackups:   config.Logging.MaxBackups,
		MaxAge:       config.Logging.MaxAge,
		Compress:     config.Logging.Compress,
		EnableStdout: config.Logging.EnableStdout,
	}
}

// fatal logs an error that ends the process and returns it
func fatal(log logrus.FieldLogger, err error) error {
	log.WithField("error", err).Error("botkit-fatal-error")
	return err
}

func init() {
	startCmd.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file path (default: search config.yaml)")
	startCmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "Environment files to load (default: .env when present)")
}
