package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Channel ChannelConfig `mapstructure:"channel"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds metadata-backend configuration
type ServerConfig struct {
	URL    string `mapstructure:"url"`     // Backend base URL, e.g. http://127.0.0.1:8400
	NodeID string `mapstructure:"node_id"` // Session/node identity used as progress correlation id
}

// SyncConfig holds metadata-sync tuning knobs
type SyncConfig struct {
	BatchSize       int `mapstructure:"batch_size"`        // Identities per batch fetch round trip
	BatchCooldownMs int `mapstructure:"batch_cooldown_ms"` // Pause between sequential batches
	DecodeWorkers   int `mapstructure:"decode_workers"`    // Max concurrent bitmap decodes
}

// ChannelConfig holds progress-channel reconnect behavior
type ChannelConfig struct {
	ReconnectDelayMs int `mapstructure:"reconnect_delay_ms"` // Fixed inter-attempt delay
	MaxReconnects    int `mapstructure:"max_reconnects"`     // Attempts before giving up for the session
}

// UIConfig holds UI configuration
type UIConfig struct {
	GridColumns int `mapstructure:"grid_columns"` // 0 = derive from terminal width
	CellWidth   int `mapstructure:"cell_width"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:    "",
			NodeID: "",
		},
		Sync: SyncConfig{
			BatchSize:       50,
			BatchCooldownMs: 100,
			DecodeWorkers:   4,
		},
		Channel: ChannelConfig{
			ReconnectDelayMs: 2000,
			MaxReconnects:    3,
		},
		UI: UIConfig{
			GridColumns: 0,
			CellWidth:   24,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "facedeck", "facedeck.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "facedeck", "facedeck.log")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "facedeck")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "facedeck")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("FACEDECK")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize clamps nonsense values back to defaults
func (c *Config) normalize() {
	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = 50
	}
	if c.Sync.BatchCooldownMs < 0 {
		c.Sync.BatchCooldownMs = 0
	}
	if c.Sync.DecodeWorkers <= 0 {
		c.Sync.DecodeWorkers = 4
	}
	if c.Channel.ReconnectDelayMs <= 0 {
		c.Channel.ReconnectDelayMs = 2000
	}
	if c.Channel.MaxReconnects < 0 {
		c.Channel.MaxReconnects = 0
	}
	if c.UI.CellWidth < 8 {
		c.UI.CellWidth = 24
	}
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()

	// Ensure config directory exists
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	viper.Set("server.url", cfg.Server.URL)
	viper.Set("server.node_id", cfg.Server.NodeID)

	viper.Set("sync.batch_size", cfg.Sync.BatchSize)
	viper.Set("sync.batch_cooldown_ms", cfg.Sync.BatchCooldownMs)
	viper.Set("sync.decode_workers", cfg.Sync.DecodeWorkers)

	viper.Set("channel.reconnect_delay_ms", cfg.Channel.ReconnectDelayMs)
	viper.Set("channel.max_reconnects", cfg.Channel.MaxReconnects)

	viper.Set("ui.grid_columns", cfg.UI.GridColumns)
	viper.Set("ui.cell_width", cfg.UI.CellWidth)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the backend URL is set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != ""
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "facedeck", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "facedeck", "cache")
	}
}

// ClearCache removes all cached data
func ClearCache() error {
	cachePath := defaultCachePath()
	if err := os.RemoveAll(cachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// GetCachePath returns the cache directory path
func GetCachePath() string {
	return defaultCachePath()
}
