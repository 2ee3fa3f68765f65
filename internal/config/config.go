package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"

	// DevSecretKey is the signing key used when SECRET_KEY is not set.
	DevSecretKey = "dev-secret-key-change-in-production"
)

// Config is read once at process start and handed to every component that
// needs it. Nothing mutates it afterwards.
type Config struct {
	// HTTP Server
	Port            string        `env:"PORT" env-default:"5000" env-description:"HTTP listen port"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
	PostsPerMinute  int           `env:"POSTS_PER_MINUTE" env-default:"60"`

	// Mode
	Environment string `env:"APP_ENV,ENV" env-default:"production" env-description:"development, production or testing"`
	LogLevel    string `env:"LOG_LEVEL" env-default:""`
	SecretKey   string `env:"SECRET_KEY" env-default:"dev-secret-key-change-in-production"`

	// Database
	DatabasePath string  `env:"DATABASE" env-default:"energy_tracker.db" env-description:"SQLite database file"`
	DefaultRate  float64 `env:"DEFAULT_RATE" env-default:"7.5" env-description:"rate per kWh seeded into an empty rate history"`

	// ReportCacheTTL enables the monthly report cache when positive.
	ReportCacheTTL time.Duration `env:"REPORT_CACHE_TTL" env-default:"0s" env-description:"lifetime of cached monthly reports, 0 disables"`

	// AMQP
	AMQPURL      string `env:"AMQP_URL" env-default:""`
	AMQPExchange string `env:"AMQP_EXCHANGE" env-default:"energy"`

	// MQTT
	MQTTBroker      string `env:"MQTT_BROKER" env-default:"" env-description:"host:port of the MQTT broker"`
	MQTTTopicPrefix string `env:"MQTT_TOPIC_PREFIX" env-default:"energy_tracker"`
	MQTTClientID    string `env:"MQTT_CLIENT_ID" env-default:"energytracker"`
	MQTTUsername    string `env:"MQTT_USERNAME" env-default:""`
	MQTTPassword    string `env:"MQTT_PASSWORD" env-default:""`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.Environment == "" {
		cfg.Environment = EnvProduction
	}
	return cfg, nil
}

// Usage returns the description of every supported environment variable.
func Usage() string {
	desc, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return ""
	}
	return desc
}

// IsDebug reports whether the process runs in development mode.
func (c *Config) IsDebug() bool {
	return c.Environment == EnvDevelopment
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTesting:
	default:
		problems = append(problems, fmt.Sprintf("invalid environment '%s': must be one of [%s %s %s]",
			c.Environment, EnvDevelopment, EnvProduction, EnvTesting))
	}

	if c.DatabasePath == "" {
		problems = append(problems, "database path cannot be empty")
	} else {
		dir := filepath.Dir(c.DatabasePath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if !(c.DefaultRate > 0) {
		problems = append(problems, fmt.Sprintf("invalid default rate %v: must be greater than 0", c.DefaultRate))
	}

	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.ShutdownTimeout <= 0 {
		problems = append(problems, "server timeouts must be positive durations")
	}

	if c.ReportCacheTTL < 0 {
		problems = append(problems, "report cache TTL cannot be negative")
	}

	if c.PostsPerMinute < 1 {
		problems = append(problems, fmt.Sprintf("invalid posts per minute %d: must be at least 1", c.PostsPerMinute))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.MQTTBroker != "" {
		if _, _, err := net.SplitHostPort(c.MQTTBroker); err != nil {
			problems = append(problems, fmt.Sprintf("invalid MQTT broker '%s': must be host:port", c.MQTTBroker))
		}
		if c.MQTTTopicPrefix == "" {
			problems = append(problems, "MQTT topic prefix cannot be empty when MQTT broker is provided")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}

	return nil
}

// ValidateServer checks the settings only the HTTP server reads. The offline
// subcommands skip it.
func (c *Config) ValidateServer() error {
	if c.SecretKey == "" {
		return errors.New("secret key cannot be empty")
	}
	return nil
}

// Warnings lists settings that work but should be changed before exposing
// the server.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Environment == EnvProduction && c.SecretKey == DevSecretKey {
		warnings = append(warnings, "SECRET_KEY is the development default; flash cookies can be forged")
	}
	return warnings
}
