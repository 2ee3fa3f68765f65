package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"energytracker/internal/cache"
	"energytracker/internal/core"
	"energytracker/internal/events"
	"energytracker/internal/log"
	"energytracker/internal/metrics"
)

// EntryStore is the persistence the service depends on.
// *storage.SQLiteRepository satisfies it.
type EntryStore interface {
	AddEntry(ctx context.Context, in core.EntryInput) (core.EnergyEntry, error)
	MonthlyEntries(ctx context.Context, month, year int) ([]core.EnergyEntry, error)
	CurrentRate(ctx context.Context) (float64, error)
	UpdateRate(ctx context.Context, ratePerKWh float64) (core.BillingRate, error)
	RateHistory(ctx context.Context) ([]core.BillingRate, error)
	EntryCount(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// ReportCache holds computed monthly reports keyed by reportKey.
type ReportCache = cache.Cache[string, core.MonthlyReport]

// EnergyService orchestrates entry and billing operations across the store
// and the event publishers. Publishing is best effort: a stored entry is
// never rolled back because a broker is unavailable.
type EnergyService struct {
	store     EntryStore
	reports   ReportCache
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *log.Logger
}

func NewEnergyService(store EntryStore, publisher events.Publisher, m *metrics.Metrics, logger *log.Logger) *EnergyService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &EnergyService{
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger.WithComponent(log.ComponentEntry),
	}
}

// WithReportCache makes MonthlyReport serve repeated reads from c. Writes
// through the service invalidate the affected months.
func (s *EnergyService) WithReportCache(c ReportCache) *EnergyService {
	s.reports = c
	return s
}

func reportKey(month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// AddEntry validates and stores a new entry, then announces it.
func (s *EnergyService) AddEntry(ctx context.Context, in core.EntryInput) (core.EnergyEntry, error) {
	if err := in.Validate(); err != nil {
		return core.EnergyEntry{}, err
	}

	entry, err := s.store.AddEntry(ctx, in)
	if err != nil {
		return core.EnergyEntry{}, fmt.Errorf("save entry: %w", err)
	}
	if s.reports != nil {
		s.reports.Delete(reportKey(entry.Period()))
	}
	s.metrics.ObserveEntry(entry.EnergyKWh)

	s.logger.InfoContext(ctx, "Energy entry recorded",
		log.NewFields().WithOperation(log.OpCreate).WithEntry(entry.ID, entry.Date.String(),
			entry.Appliance, entry.PowerWatts, entry.HoursUsed, entry.EnergyKWh).ToSlice()...)

	if err := s.publisher.PublishEntryRecorded(ctx, entry); err != nil {
		s.metrics.ObservePublishError(events.EventEntryRecorded)
		s.logger.ErrorContext(ctx, "Failed to publish entry event",
			log.FieldEntryID, entry.ID, log.FieldError, err)
	}

	return entry, nil
}

// MonthlyReport loads the entries and the current rate for month/year and
// computes the totals.
func (s *EnergyService) MonthlyReport(ctx context.Context, month, year int) (core.MonthlyReport, error) {
	if month < 1 || month > 12 {
		return core.MonthlyReport{}, core.ErrInvalidPeriod
	}
	if s.reports != nil {
		if report, ok := s.reports.Get(reportKey(month, year)); ok {
			return report, nil
		}
	}

	var (
		entries []core.EnergyEntry
		rate    float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.store.MonthlyEntries(gctx, month, year)
		return err
	})
	g.Go(func() error {
		var err error
		rate, err = s.store.CurrentRate(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthlyReport{}, fmt.Errorf("load monthly report: %w", err)
	}
	s.metrics.SetCurrentRate(rate)

	report := core.NewMonthlyReport(month, year, entries, rate)
	if s.reports != nil {
		s.reports.Set(reportKey(month, year), report)
	}
	s.logger.DebugContext(ctx, "Monthly report computed",
		log.NewFields().WithOperation(log.OpRead).WithPeriod(month, year).ToSlice()...)
	return report, nil
}

func (s *EnergyService) CurrentRate(ctx context.Context) (float64, error) {
	rate, err := s.store.CurrentRate(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.SetCurrentRate(rate)
	return rate, nil
}

// UpdateRate appends a new billing rate effective today and announces it.
func (s *EnergyService) UpdateRate(ctx context.Context, ratePerKWh float64) (core.BillingRate, error) {
	rate, err := s.store.UpdateRate(ctx, ratePerKWh)
	if err != nil {
		return core.BillingRate{}, err
	}
	if s.reports != nil {
		s.reports.Purge()
	}
	s.metrics.ObserveRateUpdate(rate.RatePerKWh)

	if err := s.publisher.PublishRateUpdated(ctx, rate); err != nil {
		s.metrics.ObservePublishError(events.EventRateUpdated)
		s.logger.ErrorContext(ctx, "Failed to publish rate event",
			log.FieldRate, rate.RatePerKWh, log.FieldError, err)
	}
	return rate, nil
}

func (s *EnergyService) RateHistory(ctx context.Context) ([]core.BillingRate, error) {
	return s.store.RateHistory(ctx)
}

// EntryCount returns the number of stored entries across all months.
func (s *EnergyService) EntryCount(ctx context.Context) (int64, error) {
	return s.store.EntryCount(ctx)
}

// Ping reports whether the store is reachable.
func (s *EnergyService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close closes both the store and the publishers
func (s *EnergyService) Close() error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	return errors.Join(errs...)
}
