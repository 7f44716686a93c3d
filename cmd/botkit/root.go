package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "botkit",
	Short: "botkit is a chat bot serving slash commands and message actions",
	Long: `botkit connects to a chat gateway (Discord or Telegram), publishes its
command set and answers commands, context-menu actions and "!ping" messages.

Configuration is read from an optional YAML file, .env files and the process
environment. The gateway token is the only required value.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// defaultConfigLocations are searched when no config file is given
func defaultConfigLocations() []string {
	locations := []string{"config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "botkit", "config.yaml"))
	}
	return append(locations, "/etc/botkit/config.yaml")
}

// findConfigFile returns path, or the first default location that exists, or ""
func findConfigFile(path string) string {
	if path != "" {
		return path
	}
	for _, loc := range defaultConfigLocations() {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(versionCmd)
}
