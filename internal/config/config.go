package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         int    `yaml:"port"`
		JWTSecret    string `yaml:"jwt_secret"`
		TokenTTLMins int    `yaml:"token_ttl_minutes"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		MaxAdvanceDays int `yaml:"max_advance_days"`
		HoldTTLSeconds int `yaml:"hold_ttl_seconds"`
	} `yaml:"booking"`

	Notify struct {
		TelegramToken  string  `yaml:"telegram_token"`
		StaffChatID    int64   `yaml:"staff_chat_id"`
		RatePerSecond  float64 `yaml:"rate_per_second"`
		Burst          int     `yaml:"burst"`
		RetentionDays  int     `yaml:"retention_days"`
		ReminderHour   int     `yaml:"reminder_hour"`
	} `yaml:"notify"`

	Audit struct {
		Enabled       bool   `yaml:"enabled"`
		ExportPath    string `yaml:"export_path"`
		ExportOnStart bool   `yaml:"export_on_start"`
	} `yaml:"audit"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"sheets"`
}

// BackupConfig controls the periodic database file copy.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.TokenTTLMins <= 0 {
		cfg.Server.TokenTTLMins = 12 * 60
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/societyhub.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Server.TokenTTLMins) * time.Minute
}

func (c *Config) HoldTTL() time.Duration {
	if c.Booking.HoldTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Booking.HoldTTLSeconds) * time.Second
}
