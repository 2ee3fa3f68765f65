// Package cli provides common CLI initialization utilities shared by the
// energytracker subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"energytracker/internal/config"
	"energytracker/internal/events"
	"energytracker/internal/events/amqp"
	"energytracker/internal/events/mqtt"
	"energytracker/internal/log"
	"energytracker/internal/storage"
)

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error; variables already present in the environment win.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from cfg and installs it as the
// slog default. Development mode gets the coloured handler and debug level
// unless LOG_LEVEL says otherwise.
func SetupLogger(cfg *config.Config, out io.Writer) *log.Logger {
	def := slog.LevelInfo
	if cfg.IsDebug() {
		def = slog.LevelDebug
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel, def),
		Component: log.ComponentApp,
		Debug:     cfg.IsDebug(),
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// InitStore opens the SQLite store at cfg.DatabasePath, applying migrations.
func InitStore(cfg *config.Config, logger *log.Logger) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(cfg.DatabasePath, cfg.DefaultRate, logger)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DatabasePath, err)
	}
	return repo, nil
}

// InitPublisher connects every configured broker. With none configured the
// returned publisher drops events.
func InitPublisher(ctx context.Context, cfg *config.Config, logger *log.Logger) (events.Publisher, error) {
	var pubs []events.Publisher

	if cfg.AMQPURL != "" {
		p, err := amqp.NewPublisher(ctx, cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return nil, fmt.Errorf("amqp: %w", err)
		}
		pubs = append(pubs, p)
	}

	if cfg.MQTTBroker != "" {
		p, err := mqtt.NewPublisher(mqtt.Options{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
		}, logger)
		if err != nil {
			closeAll(pubs)
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		pubs = append(pubs, p)
	}

	if len(pubs) == 0 {
		logger.Info("No message broker configured, events are not published")
	}
	return events.NewMulti(pubs...), nil
}

func closeAll(pubs []events.Publisher) {
	for _, p := range pubs {
		_ = p.Close()
	}
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. Calling
// stop releases the signal handler.
func GracefulShutdown(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
