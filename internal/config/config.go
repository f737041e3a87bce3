package config

import (
	"errors"
	"fmt"
	"os"

	"slotbook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Backup     BackupConfig     `yaml:"backup"`
	Vendors    []models.Vendor  `yaml:"vendors"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	PoolSize        int    `yaml:"pool_size"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BookingConfig drives the slot window and the creation policy.
type BookingConfig struct {
	WindowStartHour    int     `yaml:"window_start_hour"`
	WindowEndHour      int     `yaml:"window_end_hour"`
	SlotMinutes        int     `yaml:"slot_minutes"`
	SameDayLeadMinutes int     `yaml:"same_day_lead_minutes"`
	PaymentAmount      float64 `yaml:"payment_amount"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; expanded variables come from the process environment.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Booking.WindowStartHour >= c.Booking.WindowEndHour {
		return fmt.Errorf("booking window start hour %d must be before end hour %d",
			c.Booking.WindowStartHour, c.Booking.WindowEndHour)
	}

	return ValidateVendors(c.Vendors)
}

func ValidateVendors(vendors []models.Vendor) error {
	vendorIDs := make(map[int64]bool)
	for _, v := range vendors {
		if v.ID == 0 {
			return fmt.Errorf("vendor '%s' has invalid ID 0", v.Name)
		}
		if vendorIDs[v.ID] {
			return fmt.Errorf("duplicate vendor ID found: %d", v.ID)
		}
		if v.Name == "" {
			return fmt.Errorf("vendor %d has empty name", v.ID)
		}
		vendorIDs[v.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	if c.Booking.WindowStartHour == 0 && c.Booking.WindowEndHour == 0 {
		c.Booking.WindowStartHour = models.DefaultWindowStartHour
		c.Booking.WindowEndHour = models.DefaultWindowEndHour
	}
	if c.Booking.SlotMinutes == 0 {
		c.Booking.SlotMinutes = models.DefaultSlotMinutes
	}
	if c.Booking.SameDayLeadMinutes == 0 {
		c.Booking.SameDayLeadMinutes = models.DefaultSameDayLeadMinutes
	}
	if c.Booking.PaymentAmount == 0 {
		c.Booking.PaymentAmount = models.DefaultPaymentAmount
	}
	if c.Redis.CacheTTLSeconds == 0 {
		c.Redis.CacheTTLSeconds = models.DefaultCacheTTLSeconds
	}
}
