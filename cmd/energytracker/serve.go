package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"energytracker/internal/cache"
	"energytracker/internal/cli"
	"energytracker/internal/config"
	"energytracker/internal/core"
	apphttp "energytracker/internal/http"
	"energytracker/internal/log"
	"energytracker/internal/metrics"
	"energytracker/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web application",
	Long: `Serves the daily entry form on / and the monthly dashboard on /dashboard.
Entries and rate changes are published to AMQP and MQTT when AMQP_URL or
MQTT_BROKER is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap(os.Stdout)
	if err != nil {
		return err
	}

	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		logger.Warn("Configuration warning", "warning", w)
	}

	ctx, stop := cli.GracefulShutdown(cmd.Context())
	defer stop()

	store, err := cli.InitStore(cfg, logger.WithComponent(log.ComponentStorage))
	if err != nil {
		return err
	}

	publisher, err := cli.InitPublisher(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return err
	}

	m := metrics.New()
	svc := services.NewEnergyService(store, publisher, m, logger)
	if cfg.ReportCacheTTL > 0 {
		reports := cache.NewLRU[string, core.MonthlyReport](64, cfg.ReportCacheTTL)
		go cache.RunJanitor(ctx, time.Minute, reports)
		svc.WithReportCache(reports)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close service", log.FieldError, err)
		}
	}()

	if rate, err := svc.CurrentRate(ctx); err != nil {
		logger.Warn("Could not read current rate", log.FieldError, err)
	} else if n, err := svc.EntryCount(ctx); err == nil {
		logger.Info("Store opened", log.FieldRate, rate, "entries", n, "database", cfg.DatabasePath)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:           cfg.Addr(),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		PostsPerMinute: cfg.PostsPerMinute,
		SecretKey:      cfg.SecretKey,
		SecureCookies:  cfg.Environment == config.EnvProduction,
	}, svc, m, logger)
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting energytracker server",
			log.FieldOperation, log.OpStartup,
			"addr", cfg.Addr(),
			"environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
	return nil
}
