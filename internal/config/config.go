package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	SES      SESConfig      `yaml:"ses"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Alerting AlertingConfig `yaml:"alerting"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis settings for the sweep lock.
// Redis is optional: when Addr is empty the worker falls back to
// PostgreSQL advisory locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SESConfig holds AWS SES credentials for notification dispatch
type SESConfig struct {
	Enabled   bool   `yaml:"enabled"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// SweepConfig holds scheduling settings for the two sweeps
type SweepConfig struct {
	// Cron expressions (standard 5-field). Default is hourly for both.
	TransitionSchedule string `yaml:"transition_schedule"`
	AlertSchedule      string `yaml:"alert_schedule"`
	// RunOnStart triggers both sweeps once at worker startup, which
	// covers catch-up after downtime without waiting for the next tick.
	RunOnStart  bool `yaml:"run_on_start"`
	LockTTLSecs int  `yaml:"lock_ttl_seconds"`
	BatchSize   int  `yaml:"batch_size"`
}

// AlertingConfig holds notification settings
type AlertingConfig struct {
	// DashboardBaseURL is interpolated into notification bodies.
	DashboardBaseURL string `yaml:"dashboard_base_url"`
	AdminEmail       string `yaml:"admin_email"`
}

// Load reads configuration from a YAML file and applies defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadFromEnv loads config from file (if present) then overlays environment
// variables. A missing file is not an error so containers can run on env only.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if present (development convenience)
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		if loaded, err := Load(path); err == nil {
			cfg = loaded
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.SES.AccessKey = accessKey
		cfg.SES.Enabled = true
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if from := os.Getenv("AWS_SES_FROM_EMAIL"); from != "" {
		cfg.SES.FromEmail = from
	}
	if admin := os.Getenv("ALERT_ADMIN_EMAIL"); admin != "" {
		cfg.Alerting.AdminEmail = admin
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "eu-west-1"
	}
	if cfg.SES.FromName == "" {
		cfg.SES.FromName = "Arkivbox Retention"
	}
	if cfg.Sweep.TransitionSchedule == "" {
		cfg.Sweep.TransitionSchedule = "0 * * * *"
	}
	if cfg.Sweep.AlertSchedule == "" {
		cfg.Sweep.AlertSchedule = "30 * * * *"
	}
	if cfg.Sweep.LockTTLSecs == 0 {
		cfg.Sweep.LockTTLSecs = 1800
	}
	if cfg.Sweep.BatchSize == 0 {
		cfg.Sweep.BatchSize = 500
	}
}
