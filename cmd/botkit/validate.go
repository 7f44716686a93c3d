package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/keepmind9/botkit/internal/core"
	"github.com/spf13/cobra"
)

var (
	validateConfigFile string
	validateEnvFiles   []string
	validateJSON       bool
)

// errInvalidConfig makes the validate command exit non-zero after printing the result
var errInvalidConfig = errors.New("configuration is invalid")

// ValidationResult represents the validation result
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Config   string   `json:"config"`
	Gateway  string   `json:"gateway,omitempty"`
	Blocked  int      `json:"blocked_users"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate botkit configuration",
	Long: `Validate the botkit configuration without connecting to the gateway.

This command checks:
  - YAML syntax and ${VAR} expansion
  - The gateway selection and its token
  - Discord intents and Telegram poll timeout

Exit codes:
  0 - Configuration is valid
  1 - Configuration has errors`,
	RunE: func(cmd *cobra.Command, args []string) error {
		result := validate(findConfigFile(validateConfigFile), validateEnvFiles)
		if err := outputValidationResult(cmd.OutOrStdout(), result, validateJSON); err != nil {
			return err
		}
		if !result.Valid {
			return errInvalidConfig
		}
		return nil
	},
}

func validate(configFile string, envFiles []string) ValidationResult {
	cfg, err := core.LoadConfig(configFile, envFiles...)
	if err != nil {
		return ValidationResult{
			Valid:  false,
			Config: configFile,
			Errors: []string{err.Error()},
		}
	}

	return ValidationResult{
		Valid:    true,
		Config:   configFile,
		Gateway:  cfg.Gateway,
		Blocked:  len(cfg.Security.BlockedUsers),
		Warnings: validateConfigDetails(cfg),
	}
}

func validateConfigDetails(cfg *core.Config) []string {
	var warnings []string

	switch cfg.Gateway {
	case core.GatewayDiscord:
		if !slices.Contains(cfg.Discord.Intents, "message_content") && !slices.Contains(cfg.Discord.Intents, "all") {
			warnings = append(warnings, "message_content intent is not requested - the !ping responder will not see message text")
		}
	case core.GatewayTelegram:
		warnings = append(warnings, "Telegram does not expose account creation dates - /age will reply with the failure message")
	}

	if cfg.Commands.SilentErrors {
		warnings = append(warnings, "silent_errors is enabled - failed commands send no reply")
	}

	return warnings
}

func outputValidationResult(w io.Writer, result ValidationResult, jsonFormat bool) error {
	if jsonFormat {
		output, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		fmt.Fprintln(w, string(output))
		return nil
	}

	config := result.Config
	if config == "" {
		config = "(environment only)"
	}

	if result.Valid {
		fmt.Fprintln(w, "✓ Configuration is valid")
		fmt.Fprintf(w, "  - Config: %s\n", config)
		fmt.Fprintf(w, "  - Gateway: %s\n", result.Gateway)
		fmt.Fprintf(w, "  - Blocked users: %d\n", result.Blocked)
	} else {
		fmt.Fprintln(w, "❌ Configuration validation failed:")
		fmt.Fprintf(w, "  - Config: %s\n", config)
		if len(result.Errors) > 0 {
			fmt.Fprintln(w, "\nErrors:")
			for _, errMsg := range result.Errors {
				fmt.Fprintf(w, "  - %s\n", errMsg)
			}
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, "\n⚠️  Warnings:")
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}
	return nil
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "config", "c", "", "Configuration file path")
	validateCmd.Flags().StringSliceVar(&validateEnvFiles, "env-file", nil, "Environment files to load (default: .env when present)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
}
