// Package core wires configuration, the command dispatcher and a gateway client
// into a running bot.
//
// # Configuration
//
// Configuration comes from three layers, later layers winning:
//
//   - defaults
//   - an optional YAML file, with ${VAR} expansion
//   - the process environment, after loading .env files
//
// The only required value is the token of the selected gateway.
//
// # Example Configuration
//
//   gateway: discord
//   discord:
//     token: "${DISCORD_BOT_TOKEN}"
//     intents: [guild_messages, direct_messages, message_content]
//   security:
//     blocked_users: ["123456789"]
//   commands:
//     failure_reply: "Something went wrong."
//   logging:
//     level: info
//     file: logs/botkit.log
package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/keepmind9/botkit/internal/gateway"
	"github.com/keepmind9/botkit/internal/handlers"
	"github.com/keepmind9/botkit/pkg/constants"
	"gopkg.in/yaml.v3"
)

const (
	GatewayDiscord  = "discord"
	GatewayTelegram = "telegram"

	DefaultGateway         = GatewayDiscord
	DefaultLogLevel        = "info"
	DefaultLogCompress     = true
	DefaultLogEnableStdout = true
)

// ErrMissingToken is returned when the selected gateway has no token
var ErrMissingToken = errors.New("missing bot token")

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// DefaultConfig returns the configuration used before any file or environment is read
func DefaultConfig() *Config {
	return &Config{
		Gateway: DefaultGateway,
		Discord: DiscordConfig{
			Intents: append([]string(nil), gateway.DefaultDiscordIntents...),
		},
		Telegram: TelegramConfig{
			PollTimeout: constants.DefaultPollTimeout.String(),
		},
		Commands: CommandsConfig{
			TimestampLayout: handlers.DefaultTimestampLayout,
		},
		Logging: LoggingConfig{
			Level:        DefaultLogLevel,
			MaxSize:      constants.DefaultLogMaxSize,
			MaxBackups:   constants.DefaultLogMaxBackups,
			MaxAge:       constants.DefaultLogMaxAge,
			Compress:     DefaultLogCompress,
			EnableStdout: DefaultLogEnableStdout,
		},
	}
}

// LoadConfig builds the configuration from defaults, the YAML file at configPath
// (skipped when empty) and the environment.
//
// envFiles are loaded into the environment first without overriding variables
// that are already set. With no envFiles, a ".env" in the working directory is
// loaded when present.
func LoadConfig(configPath string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		expandedData, err := expandEnv(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to expand environment variables: %w", err)
		}

		if err := yaml.Unmarshal([]byte(expandedData), config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files %s: %w", strings.Join(files, ", "), err)
	}
	return nil
}

// expandEnv replaces ${VAR_NAME} patterns with environment variable values.
// A bare $ is left alone.
func expandEnv(input string) (string, error) {
	var missingVars []string

	result := envRefPattern.ReplaceAllStringFunc(input, func(ref string) string {
		key := envRefPattern.FindStringSubmatch(ref)[1]
		if val := os.Getenv(key); val != "" {
			return val
		}
		missingVars = append(missingVars, key)
		return ""
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variables: %s",
			strings.Join(missingVars, ", "))
	}

	return result, nil
}

// validateConfig normalizes the configuration and checks the active gateway
func validateConfig(config *Config) error {
	config.Gateway = strings.ToLower(strings.TrimSpace(config.Gateway))
	if config.Gateway == "" {
		config.Gateway = DefaultGateway
	}

	switch config.Gateway {
	case GatewayDiscord:
		if config.Discord.Token == "" {
			return fmt.Errorf("%w: set DISCORD_BOT_TOKEN or discord.token", ErrMissingToken)
		}
		if len(config.Discord.Intents) == 0 {
			config.Discord.Intents = append([]string(nil), gateway.DefaultDiscordIntents...)
		}
		if _, err := gateway.ParseIntents(config.Discord.Intents); err != nil {
			return err
		}
	case GatewayTelegram:
		if config.Telegram.Token == "" {
			return fmt.Errorf("%w: set TELEGRAM_BOT_TOKEN or telegram.token", ErrMissingToken)
		}
		if _, err := config.Telegram.pollTimeout(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown gateway %q (supported: %s, %s)", config.Gateway, GatewayDiscord, GatewayTelegram)
	}

	if config.Commands.TimestampLayout == "" {
		config.Commands.TimestampLayout = handlers.DefaultTimestampLayout
	}

	blocked := config.Security.BlockedUsers[:0]
	for _, id := range config.Security.BlockedUsers {
		if id = strings.TrimSpace(id); id != "" {
			blocked = append(blocked, id)
		}
	}
	config.Security.BlockedUsers = blocked

	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = constants.DefaultLogMaxSize
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = constants.DefaultLogMaxBackups
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = constants.DefaultLogMaxAge
	}

	return nil
}

// Token returns the token of the active gateway
func (c *Config) Token() string {
	if c.Gateway == GatewayTelegram {
		return c.Telegram.Token
	}
	return c.Discord.Token
}

func (t TelegramConfig) pollTimeout() (time.Duration, error) {
	if t.PollTimeout == "" {
		return constants.DefaultPollTimeout, nil
	}
	d, err := time.ParseDuration(t.PollTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram.poll_timeout: %w", err)
	}
	if d < time.Second || d > 10*time.Minute {
		return 0, fmt.Errorf("telegram.poll_timeout must be between 1s and 10m (got %v)", d)
	}
	return d, nil
}
