package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimeZone        = "America/New_York"
	DefaultDurationMinutes = 30
	DefaultHostName        = "Host"

	DefaultSavvyCalBaseURL = "https://api.savvycal.com"
	DefaultCalComBaseURL   = "https://api.cal.com"
	DefaultCalComVersion   = "2024-08-13"

	SavvyCalTokenEnv = "SAVVYCAL_TOKEN"
	CalComTokenEnv   = "CALCOM_TOKEN"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Booking    BookingConfig    `yaml:"booking"`
	Redis      RedisConfig      `yaml:"redis"`
	Cache      CacheConfig      `yaml:"cache"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP         APIHTTPConfig      `yaml:"http"`
	RateLimit    APIRateLimitConfig `yaml:"rate_limit"`
	MaxBodyBytes int64              `yaml:"max_body_bytes"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ProvidersConfig struct {
	SavvyCal ProviderConfig `yaml:"savvycal"`
	CalCom   ProviderConfig `yaml:"calcom"`
}

// ProviderConfig holds the connection settings of one scheduling API.
// An empty Token disables the provider.
type ProviderConfig struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	APIVersion     string `yaml:"api_version"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

type BookingConfig struct {
	DefaultTimeZone string `yaml:"default_time_zone"`
	DefaultDuration int    `yaml:"default_duration"`
	DefaultHostName string `yaml:"default_host_name"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type TelegramConfig struct {
	BotToken   string `yaml:"bot_token"`
	ChatID     int64  `yaml:"chat_id"`
	QueueSize  int    `yaml:"queue_size"`
	MaxRetries int    `yaml:"max_retries"`
}

func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

// Load reads the YAML config at configPath, expanding ${VAR} references.
// A missing file is not an error: defaults and environment are used instead.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var config Config
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			expandedData := []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(expandedData, &config); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.API.HTTP.Port < 0 || c.API.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.API.HTTP.Port)
	}
	if c.API.RateLimit.RPS < 0 {
		return errors.New("rate_limit.rps must not be negative")
	}
	if c.Booking.DefaultDuration <= 0 {
		return errors.New("booking.default_duration must be positive")
	}
	if _, err := time.LoadLocation(c.Booking.DefaultTimeZone); err != nil {
		return fmt.Errorf("booking.default_time_zone: %w", err)
	}
	if c.Cache.TTLSeconds < 0 {
		return errors.New("cache.ttl_seconds must not be negative")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "bookproxy"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.MaxBodyBytes <= 0 {
		c.API.MaxBodyBytes = 64 << 10
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	applyProviderDefaults(&c.Providers.SavvyCal, DefaultSavvyCalBaseURL, SavvyCalTokenEnv)
	applyProviderDefaults(&c.Providers.CalCom, DefaultCalComBaseURL, CalComTokenEnv)
	if c.Providers.CalCom.APIVersion == "" {
		c.Providers.CalCom.APIVersion = DefaultCalComVersion
	}

	if c.Booking.DefaultTimeZone == "" {
		c.Booking.DefaultTimeZone = DefaultTimeZone
	}
	if c.Booking.DefaultDuration == 0 {
		c.Booking.DefaultDuration = DefaultDurationMinutes
	}
	if c.Booking.DefaultHostName == "" {
		c.Booking.DefaultHostName = DefaultHostName
	}

	if c.Telegram.QueueSize <= 0 {
		c.Telegram.QueueSize = 64
	}
	if c.Telegram.MaxRetries <= 0 {
		c.Telegram.MaxRetries = 3
	}
}

func applyProviderDefaults(p *ProviderConfig, baseURL, tokenEnv string) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	p.BaseURL = strings.TrimRight(p.BaseURL, "/")
	if p.Token == "" {
		p.Token = os.Getenv(tokenEnv)
	}
	p.Token = strings.TrimSpace(p.Token)
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = 10
	}
}
