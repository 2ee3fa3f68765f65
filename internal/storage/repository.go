// Package storage persists energy entries and the billing rate history in
// SQLite.
//
// Every operation borrows a dedicated connection from the pool and returns it
// before the call completes, including on error paths. No state is kept
// between calls besides the database itself.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"energytracker/internal/core"
	"energytracker/internal/log"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339

type SQLiteRepository struct {
	db          *sql.DB
	path        string
	defaultRate float64
	logger      *log.Logger
	now         func() time.Time
}

// NewSQLiteRepository opens the database at dbPath, applies migrations and
// seeds defaultRate when the rate history is empty.
func NewSQLiteRepository(dbPath string, defaultRate float64, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if !(defaultRate > 0) {
		defaultRate = core.DefaultRatePerKWh
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:          db,
		path:        dbPath,
		defaultRate: defaultRate,
		logger:      logger.WithComponent(log.ComponentStorage),
		now:         time.Now,
	}

	if err := repo.seedDefaultRate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the database file location.
func (r *SQLiteRepository) Path() string {
	return r.path
}

// withConn runs fn on a connection that is released when fn returns.
func (r *SQLiteRepository) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// seedDefaultRate inserts the default rate only when no rate exists yet.
func (r *SQLiteRepository) seedDefaultRate(ctx context.Context) error {
	var seeded int64
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		now := r.now()
		res, err := conn.ExecContext(ctx,
			`INSERT INTO billing_rates (rate_per_kwh, effective_date, created_at)
			 SELECT ?, ?, ?
			 WHERE NOT EXISTS (SELECT 1 FROM billing_rates)`,
			r.defaultRate, core.Today(now).String(), now.UTC().Format(timestampLayout),
		)
		if err != nil {
			return err
		}
		seeded, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed default rate: %w", err)
	}
	if seeded > 0 {
		r.logger.Info("Seeded default billing rate", log.FieldRate, r.defaultRate)
	}
	return nil
}

// AddEntry computes the energy of in, stores a new entry and returns it.
func (r *SQLiteRepository) AddEntry(ctx context.Context, in core.EntryInput) (core.EnergyEntry, error) {
	if err := in.Validate(); err != nil {
		return core.EnergyEntry{}, fmt.Errorf("validate entry: %w", err)
	}

	now := r.now().UTC()
	entry := core.EnergyEntry{
		Date:       in.Date,
		Appliance:  in.Appliance,
		PowerWatts: in.PowerWatts,
		HoursUsed:  in.HoursUsed,
		EnergyKWh:  core.EnergyKWh(in.PowerWatts, in.HoursUsed),
		CreatedAt:  now.Truncate(time.Second),
	}

	err := r.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			`INSERT INTO energy_entries (date, appliance, power_watts, hours_used, energy_kwh, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			entry.Date.String(), entry.Appliance, entry.PowerWatts, entry.HoursUsed, entry.EnergyKWh,
			now.Format(timestampLayout),
		)
		if err != nil {
			return err
		}
		entry.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return core.EnergyEntry{}, fmt.Errorf("insert entry: %w", err)
	}

	r.logger.DebugContext(ctx, "Energy entry saved to SQLite",
		log.NewFields().WithEntry(entry.ID, entry.Date.String(), entry.Appliance,
			entry.PowerWatts, entry.HoursUsed, entry.EnergyKWh).ToSlice()...)

	return entry, nil
}

// MonthlyEntries returns the entries dated within month/year, most recent
// date first. Entries sharing a date are ordered newest insert first.
func (r *SQLiteRepository) MonthlyEntries(ctx context.Context, month, year int) ([]core.EnergyEntry, error) {
	if month < 1 || month > 12 || year < 1 || year > 9999 {
		return nil, fmt.Errorf("monthly entries (month=%d, year=%d): %w", month, year, core.ErrInvalidPeriod)
	}
	from := core.NewDate(year, month, 1)
	to := core.Date{Time: from.AddDate(0, 1, 0)}

	entries := []core.EnergyEntry{}
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, date, appliance, power_watts, hours_used, energy_kwh, created_at
			 FROM energy_entries
			 WHERE date >= ? AND date < ?
			 ORDER BY date DESC, id DESC`,
			from.String(), to.String(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query monthly entries (month=%d, year=%d): %w", month, year, err)
	}

	return entries, nil
}

// EntryCount returns the number of stored entries.
func (r *SQLiteRepository) EntryCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM energy_entries`).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// CurrentRate returns the rate with the latest effective date, the latest
// insert winning ties. The configured default is returned only if the
// history is empty.
func (r *SQLiteRepository) CurrentRate(ctx context.Context) (float64, error) {
	var rate float64
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx,
			`SELECT rate_per_kwh FROM billing_rates
			 ORDER BY effective_date DESC, id DESC
			 LIMIT 1`,
		).Scan(&rate)
	})
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.WarnContext(ctx, "Billing rate history is empty, using default", log.FieldRate, r.defaultRate)
		return r.defaultRate, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query current rate: %w", err)
	}
	return rate, nil
}

// UpdateRate appends a new rate effective today. Earlier rows are kept.
func (r *SQLiteRepository) UpdateRate(ctx context.Context, ratePerKWh float64) (core.BillingRate, error) {
	if !(ratePerKWh > 0) {
		return core.BillingRate{}, core.ErrInvalidRate
	}

	now := r.now()
	rate := core.BillingRate{
		RatePerKWh:    ratePerKWh,
		EffectiveDate: core.Today(now),
		CreatedAt:     now.UTC().Truncate(time.Second),
	}

	err := r.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			`INSERT INTO billing_rates (rate_per_kwh, effective_date, created_at) VALUES (?, ?, ?)`,
			rate.RatePerKWh, rate.EffectiveDate.String(), now.UTC().Format(timestampLayout),
		)
		if err != nil {
			return err
		}
		rate.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return core.BillingRate{}, fmt.Errorf("insert billing rate: %w", err)
	}

	r.logger.InfoContext(ctx, "Billing rate updated",
		"id", rate.ID,
		log.FieldRate, rate.RatePerKWh,
		"effective_date", rate.EffectiveDate.String())

	return rate, nil
}

// RateHistory returns every stored rate, current rate first.
func (r *SQLiteRepository) RateHistory(ctx context.Context) ([]core.BillingRate, error) {
	rates := []core.BillingRate{}
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, rate_per_kwh, effective_date, created_at
			 FROM billing_rates
			 ORDER BY effective_date DESC, id DESC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				rate               core.BillingRate
				effective, created string
			)
			if err := rows.Scan(&rate.ID, &rate.RatePerKWh, &effective, &created); err != nil {
				return fmt.Errorf("scan billing rate: %w", err)
			}
			if rate.EffectiveDate, err = core.ParseDate(effective); err != nil {
				return fmt.Errorf("parse effective date %q: %w", effective, err)
			}
			rate.CreatedAt = parseTimestamp(created)
			rates = append(rates, rate)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query rate history: %w", err)
	}
	return rates, nil
}

// Ping verifies the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.withConn(ctx, func(conn *sql.Conn) error {
		return conn.PingContext(ctx)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.EnergyEntry, error) {
	var (
		e             core.EnergyEntry
		date, created string
	)
	if err := row.Scan(&e.ID, &date, &e.Appliance, &e.PowerWatts, &e.HoursUsed, &e.EnergyKWh, &created); err != nil {
		return core.EnergyEntry{}, fmt.Errorf("scan entry: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.EnergyEntry{}, fmt.Errorf("parse entry date %q: %w", date, err)
	}
	e.Date = d
	e.CreatedAt = parseTimestamp(created)
	return e, nil
}

// parseTimestamp accepts RFC3339 and the SQLite CURRENT_TIMESTAMP form.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{timestampLayout, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
