package core

// Config represents the complete botkit configuration structure.
// yaml tags bind the optional config file; env tags bind the environment
// overrides, which win over the file.
type Config struct {
	Gateway  string         `yaml:"gateway" env:"BOT_GATEWAY"`
	Discord  DiscordConfig  `yaml:"discord"`
	Telegram TelegramConfig `yaml:"telegram"`
	Security SecurityConfig `yaml:"security"`
	Commands CommandsConfig `yaml:"commands"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DiscordConfig represents the Discord gateway configuration
type DiscordConfig struct {
	Token string `yaml:"token" env:"DISCORD_BOT_TOKEN"`
	// GuildID publishes commands to one guild instead of globally
	GuildID string `yaml:"guild_id" env:"DISCORD_GUILD_ID"`
	// Intents are comma separated in the environment
	Intents []string `yaml:"intents" env:"DISCORD_INTENTS"`
	// DisableReconnect ends the run on the first disconnect
	DisableReconnect bool `yaml:"disable_reconnect"`
}

// TelegramConfig represents the Telegram gateway configuration
type TelegramConfig struct {
	Token       string `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	PollTimeout string `yaml:"poll_timeout"` // Long poll timeout (e.g., "60s")
}

// SecurityConfig represents access control configuration
type SecurityConfig struct {
	BlockedUsers []string `yaml:"blocked_users" env:"BOT_BLOCKED_USERS"` // User IDs on the active gateway
}

// CommandsConfig controls how command failures and replies look
type CommandsConfig struct {
	FailureReply    string `yaml:"failure_reply" env:"BOT_FAILURE_REPLY"`
	SilentErrors    bool   `yaml:"silent_errors" env:"BOT_SILENT_ERRORS"`
	TimestampLayout string `yaml:"timestamp_layout"` // Go time layout used by "age"
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level" env:"LOG_LEVEL"` // debug, info, warn, error
	Format       string `yaml:"format"`                // text or json; empty picks by level
	File         string `yaml:"file" env:"LOG_FILE"`   // Log file path
	MaxSize      int    `yaml:"max_size"`              // Single file max size in MB (default: 100)
	MaxBackups   int    `yaml:"max_backups"`           // Number of backups to keep (default: 5)
	MaxAge       int    `yaml:"max_age"`               // Maximum days to retain (default: 30)
	Compress     bool   `yaml:"compress"`              // Whether to compress old logs (default: true)
	EnableStdout bool   `yaml:"enable_stdout"`         // Also output to stdout (default: true)
}
