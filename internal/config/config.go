// Package config loads practice service configuration from defaults, a YAML
// file, a .env file and PRACTICE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/weboryskills/practice/internal/streak"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverLocal    = "local"
)

// Activity sinks
const (
	SinkStore = "store"
	SinkQueue = "queue"
	SinkNone  = "none"
)

// LLM providers
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderOllama = "ollama"
)

// Config holds all configuration for the service
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
	Activity  ActivityConfig  `yaml:"activity" envPrefix:"ACTIVITY_"`
	LLM       LLMConfig       `yaml:"llm" envPrefix:"LLM_"`
	Award     AwardConfig     `yaml:"award"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"OTEL_"`
}

// ServerConfig holds HTTP daemon settings
type ServerConfig struct {
	Bind            string        `yaml:"bind" env:"BIND"`
	Port            int           `yaml:"port" env:"PORT"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL"`
	LogFile         string        `yaml:"log_file" env:"LOG_FILE"`
	RateLimit       int           `yaml:"rate_limit_per_minute" env:"RATE_LIMIT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Bind, s.Port)
}

// StorageConfig selects and configures the progress store
type StorageConfig struct {
	Driver         string `yaml:"driver" env:"DRIVER"`
	SQLitePath     string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	PostgresURL    string `yaml:"postgres_url" env:"POSTGRES_URL"`
	PostgresSchema string `yaml:"postgres_schema" env:"POSTGRES_SCHEMA"`
	LocalDir       string `yaml:"local_dir" env:"LOCAL_DIR"`
}

// ActivityConfig selects where awarded-session activities go
type ActivityConfig struct {
	Sink    string `yaml:"sink" env:"SINK"`
	AMQPURL string `yaml:"amqp_url" env:"AMQP_URL"`
	Consume bool   `yaml:"consume" env:"CONSUME"`
	Workers int    `yaml:"workers" env:"WORKERS"`
}

// LLMConfig holds the oracle's provider settings
type LLMConfig struct {
	Provider      string        `yaml:"provider" env:"PROVIDER"`
	APIKey        string        `yaml:"-" env:"API_KEY"`
	BaseURL       string        `yaml:"base_url" env:"BASE_URL"`
	Models        []string      `yaml:"models" env:"MODELS" envSeparator:","`
	MaxTokens     int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Temperature   float64       `yaml:"temperature" env:"TEMPERATURE"`
	RatePerSecond int           `yaml:"rate_per_second" env:"RATE_PER_SECOND"`
	MaxConcurrent int           `yaml:"max_concurrent" env:"MAX_CONCURRENT"`
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// AwardConfig holds XP and streak rules
type AwardConfig struct {
	InterviewXP       int           `yaml:"interview_xp" env:"AWARD_INTERVIEW_XP"`
	AptitudeThreshold int           `yaml:"aptitude_threshold" env:"AWARD_APTITUDE_THRESHOLD"`
	StreakBonus       int           `yaml:"streak_bonus" env:"STREAK_BONUS"`
	StreakUTCOffset   string        `yaml:"streak_utc_offset" env:"STREAK_UTC_OFFSET"`
	StreakTolerance   time.Duration `yaml:"streak_tolerance" env:"STREAK_TOLERANCE"`
}

// TelemetryConfig enables OTLP tracing when Endpoint is set
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	Insecure    bool   `yaml:"insecure" env:"INSECURE"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bind:            "127.0.0.1",
			Port:            7433,
			LogLevel:        "info",
			RateLimit:       30,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver:         DriverSQLite,
			PostgresSchema: "practice",
		},
		Activity: ActivityConfig{
			Sink:    SinkStore,
			Workers: 3,
		},
		LLM: LLMConfig{
			Provider:      ProviderGroq,
			Models:        []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
			MaxTokens:     1024,
			Temperature:   0.2,
			RatePerSecond: 2,
			MaxConcurrent: 5,
			Timeout:       60 * time.Second,
		},
		Award: AwardConfig{
			InterviewXP:       50,
			AptitudeThreshold: 7,
			StreakBonus:       streak.DefaultBonus,
			StreakUTCOffset:   streak.DefaultOffset,
			StreakTolerance:   streak.DefaultTolerance,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "practiced",
		},
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("server.log_level %q: want debug, info, warn or error", c.Server.LogLevel))
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverLocal:
	case DriverPostgres:
		if c.Storage.PostgresURL == "" {
			errs = append(errs, errors.New("storage.postgres_url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q: want sqlite, postgres or local", c.Storage.Driver))
	}

	switch c.Activity.Sink {
	case SinkStore, SinkNone:
	case SinkQueue:
		if c.Activity.AMQPURL == "" {
			errs = append(errs, errors.New("activity.amqp_url is required for the queue sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("activity.sink %q: want store, queue or none", c.Activity.Sink))
	}
	if c.Activity.Consume && c.Activity.AMQPURL == "" {
		errs = append(errs, errors.New("activity.amqp_url is required to consume activities"))
	}

	switch c.LLM.Provider {
	case ProviderGroq, ProviderOpenAI, ProviderClaude:
		if c.LLM.APIKey == "" {
			errs = append(errs, fmt.Errorf("llm.api_key is required for the %s provider", c.LLM.Provider))
		}
	case ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q: want groq, openai, claude or ollama", c.LLM.Provider))
	}

	if c.Award.InterviewXP < 0 || c.Award.StreakBonus < 0 {
		errs = append(errs, errors.New("award xp values must not be negative"))
	}
	if c.Award.AptitudeThreshold < 0 || c.Award.AptitudeThreshold > 10 {
		errs = append(errs, fmt.Errorf("award.aptitude_threshold %d outside 0..10", c.Award.AptitudeThreshold))
	}
	if _, err := streak.ParseOffset(c.Award.StreakUTCOffset); err != nil {
		errs = append(errs, err)
	}
	if c.Award.StreakTolerance < 24*time.Hour {
		errs = append(errs, fmt.Errorf("award.streak_tolerance %v shorter than a day", c.Award.StreakTolerance))
	}

	return errors.Join(errs...)
}

// Calendar builds the streak calendar from the award settings
func (c *Config) Calendar() (streak.Calendar, error) {
	loc, err := streak.ParseOffset(c.Award.StreakUTCOffset)
	if err != nil {
		return streak.Calendar{}, err
	}
	return streak.Calendar{
		Location:  loc,
		Tolerance: c.Award.StreakTolerance,
		Bonus:     c.Award.StreakBonus,
	}, nil
}
