package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"vitrina/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	NumberingBackendDatabase = "database"
	NumberingBackendRedis    = "redis"
)

type Config struct {
	App        AppConfig          `yaml:"app"`
	Database   DatabaseConfig     `yaml:"database"`
	Redis      RedisConfig        `yaml:"redis"`
	Backup     BackupConfig       `yaml:"backup"`
	Numbering  NumberingConfig    `yaml:"numbering"`
	Booking    BookingConfig      `yaml:"booking"`
	Monitoring MonitoringConfig   `yaml:"monitoring"`
	Logging    LoggingConfig      `yaml:"logging"`
	API        APIConfig          `yaml:"api"`
	Simulator  SimulatorConfig    `yaml:"simulator"`
	Kafka      KafkaConfig        `yaml:"kafka"`
	Performers []models.Performer `yaml:"performers"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	HeaderUserID string         `yaml:"header_user_id"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
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
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

// NumberingConfig выбирает хранилище суточных счётчиков номеров заявок.
type NumberingConfig struct {
	Prefix         string `yaml:"prefix"`
	Backend        string `yaml:"backend"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`
}

type BookingConfig struct {
	LookaheadDays     int `yaml:"lookahead_days"`
	MaxBookingsPerDay int `yaml:"max_bookings_per_day"`
	CreateRetries     int `yaml:"create_retries"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// SimulatorConfig управляет генератором демо-активности.
type SimulatorConfig struct {
	Enabled              bool    `yaml:"enabled"`
	IntervalMinutes      int     `yaml:"interval_minutes"`
	MinTriggerGapMinutes int     `yaml:"min_trigger_gap_minutes"`
	ConfirmProbability   float64 `yaml:"confirm_probability"`
	CreateProbability    float64 `yaml:"create_probability"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Buffer  int      `yaml:"buffer"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
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

	switch c.Numbering.Backend {
	case NumberingBackendDatabase:
	case NumberingBackendRedis:
		if c.Redis.Address == "" {
			return errors.New("redis address is required for numbering backend redis")
		}
	default:
		return fmt.Errorf("unknown numbering backend %q", c.Numbering.Backend)
	}

	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("kafka brokers and topic are required when kafka is enabled")
	}

	for _, p := range []float64{c.Simulator.ConfirmProbability, c.Simulator.CreateProbability} {
		if p < 0 || p > 1 {
			return fmt.Errorf("simulator probability %v out of [0,1]", p)
		}
	}

	return ValidatePerformers(c.Performers)
}

func ValidatePerformers(performers []models.Performer) error {
	names := make(map[string]bool)
	for _, p := range performers {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return errors.New("performer name is required")
		}
		if names[name] {
			return fmt.Errorf("duplicate performer name: %s", name)
		}
		if p.PricePerHour < 0 {
			return fmt.Errorf("performer '%s' has negative price", name)
		}
		names[name] = true
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
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.API.Auth.HeaderUserID == "" {
		c.API.Auth.HeaderUserID = "x-user-id"
	}

	if c.Numbering.Prefix == "" {
		c.Numbering.Prefix = models.DefaultBookingNumberPrefix
	}
	if c.Numbering.Backend == "" {
		c.Numbering.Backend = NumberingBackendDatabase
	}
	c.Numbering.Backend = strings.ToLower(strings.TrimSpace(c.Numbering.Backend))
	if c.Numbering.RedisKeyPrefix == "" {
		c.Numbering.RedisKeyPrefix = "vitrina:booking_seq"
	}

	if c.Booking.LookaheadDays == 0 {
		c.Booking.LookaheadDays = models.DefaultLookaheadDays
	}
	if c.Booking.MaxBookingsPerDay == 0 {
		c.Booking.MaxBookingsPerDay = models.DefaultMaxBookingsPerDay
	}
	if c.Booking.CreateRetries == 0 {
		c.Booking.CreateRetries = 3
	}

	if c.Simulator.IntervalMinutes == 0 {
		c.Simulator.IntervalMinutes = models.DefaultSimulatorIntervalMinutes
	}
	if c.Simulator.MinTriggerGapMinutes == 0 {
		c.Simulator.MinTriggerGapMinutes = 5
	}
	if c.Simulator.ConfirmProbability == 0 {
		c.Simulator.ConfirmProbability = 0.7
	}
	if c.Simulator.CreateProbability == 0 {
		c.Simulator.CreateProbability = 0.3
	}

	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "vitrina.bookings"
	}
	if c.Kafka.Buffer == 0 {
		c.Kafka.Buffer = 256
	}

	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
}
