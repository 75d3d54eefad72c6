package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"volume-spike-detector/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Load secrets from .env when present
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 2. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a Config from raw YAML, applying defaults and environment overrides
func Parse(data []byte) (*Config, error) {
	modelConfig := Defaults()
	if err := yaml.Unmarshal(data, modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: modelConfig}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Defaults returns the configuration used for any key missing from the file
func Defaults() *models.MConfig {
	return &models.MConfig{
		Name:     "volume-spike-detector",
		Host:     "0.0.0.0",
		Port:     8000,
		LogLevel: "INFO",
		GrpcHost: "0.0.0.0",
		GrpcPort: 50051,
		Storage: models.MStorageConfig{
			DBType:            "sqlite",
			DBPath:            "spikes.db",
			DBSchema:          "volume_spikes",
			DataRetentionDays: 30,
		},
		Network: models.MNetworkConfig{
			RequestTimeout: 10,
			MaxRetries:     0,
			UserAgent:      "volume-spike-detector/1.0",
		},
		Detector: models.MDetectorConfig{
			IndividualTradeThreshold: 30_000_000,
			MinVolumeSpike:           1000,
			CooldownSeconds:          60,
			DispatchQueueSize:        256,
			SinkTimeoutSeconds:       10,
			RecentAlerts:             200,
		},
		Schedule: models.MScheduleConfig{
			Enabled:         true,
			Timezone:        "Asia/Kolkata",
			Start:           "09:13",
			End:             "16:00",
			CalendarMIC:     "xnse",
			TradingDaysOnly: true,
		},
		Supervisor: models.MSupervisorConfig{
			WindowPollSeconds:        60,
			RunningPollSeconds:       30,
			AuthCheckIntervalSeconds: 3600,
			StopGraceSeconds:         2,
			RetryDelaySeconds:        10,
			ErrorDelaySeconds:        10,
			MaxRestarts:              5,
			RestartWindowSeconds:     300,
			RestartPauseSeconds:      300,
		},
		Feed: models.MFeedConfig{
			URL:      "wss://socket.fyers.in/hsm/v1-5/prod",
			DataType: "SymbolUpdate",
		},
		Auth: models.MAuthConfig{
			TokenFile:        "fyers_access_token.json",
			TokenMaxAgeHours: 8,
		},
		Telegram: models.MTelegramConfig{
			APIURL: "https://api.telegram.org",
		},
		Summary: models.MSummaryConfig{
			Enabled:         true,
			SendTime:        "16:30",
			IntervalMinutes: 120,
			TopN:            15,
		},
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() {
	if v := os.Getenv("FYERS_CLIENT_ID"); v != "" {
		c.Feed.ClientID = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.DBConnectionString = v
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %q", c.Storage.DBType)
	}
	if c.Storage.DataRetentionDays <= 0 {
		return fmt.Errorf("data retention days must be greater than 0")
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Detector
	if c.Detector.IndividualTradeThreshold <= 0 {
		return fmt.Errorf("individual trade threshold must be greater than 0")
	}
	if c.Detector.MinVolumeSpike < 0 {
		return fmt.Errorf("min volume spike cannot be negative")
	}
	if c.Detector.CooldownSeconds < 0 {
		return fmt.Errorf("cooldown cannot be negative")
	}
	if c.Detector.DispatchQueueSize <= 0 {
		return fmt.Errorf("dispatch queue size must be greater than 0")
	}

	// Schedule
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid schedule timezone %q: %w", c.Schedule.Timezone, err)
	}
	start, err := ParseClock(c.Schedule.Start)
	if err != nil {
		return fmt.Errorf("invalid schedule start: %w", err)
	}
	end, err := ParseClock(c.Schedule.End)
	if err != nil {
		return fmt.Errorf("invalid schedule end: %w", err)
	}
	if end <= start {
		return fmt.Errorf("schedule end %s must be after start %s", c.Schedule.End, c.Schedule.Start)
	}

	// Supervisor
	s := c.Supervisor
	if s.WindowPollSeconds <= 0 || s.RunningPollSeconds <= 0 || s.AuthCheckIntervalSeconds <= 0 {
		return fmt.Errorf("supervisor poll intervals must be greater than 0")
	}
	if s.StopGraceSeconds < 0 || s.RetryDelaySeconds < 0 || s.ErrorDelaySeconds < 0 {
		return fmt.Errorf("supervisor delays cannot be negative")
	}
	if s.MaxRestarts <= 0 {
		return fmt.Errorf("max restarts must be greater than 0")
	}

	// Feed
	if c.Feed.URL == "" {
		return fmt.Errorf("feed url cannot be empty")
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("at least one feed symbol must be configured")
	}
	for i, sym := range c.Feed.Symbols {
		if sym == "" {
			return fmt.Errorf("feed symbol %d cannot be empty", i)
		}
	}

	// Auth
	if c.Auth.TokenMaxAgeHours <= 0 {
		return fmt.Errorf("token max age must be greater than 0")
	}

	// Telegram
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram enabled but bot token or chat id is missing")
	}

	// Summary
	if c.Summary.Enabled {
		if _, err := ParseClock(c.Summary.SendTime); err != nil {
			return fmt.Errorf("invalid summary send time: %w", err)
		}
		if c.Summary.IntervalMinutes <= 0 || c.Summary.TopN <= 0 {
			return fmt.Errorf("summary interval and top_n must be greater than 0")
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// Seconds converts an integer setting to a time.Duration
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// -----------------------------------------------------------------------------

// ParseClock parses "HH:MM" into an offset from midnight
func ParseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
