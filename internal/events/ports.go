// Package events defines the outbound notifications emitted when entries are
// recorded or the billing rate changes.
package events

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"energytracker/internal/core"
)

// Publisher delivers domain events to an external system. Implementations
// must be safe for concurrent use.
type Publisher interface {
	PublishEntryRecorded(ctx context.Context, e core.EnergyEntry) error
	PublishRateUpdated(ctx context.Context, r core.BillingRate) error
	Close() error
}

// Noop discards every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) PublishEntryRecorded(context.Context, core.EnergyEntry) error { return nil }
func (Noop) PublishRateUpdated(context.Context, core.BillingRate) error  { return nil }
func (Noop) Close() error                                                { return nil }

// Multi fans every event out to all publishers concurrently.
type Multi []Publisher

// NewMulti drops nil publishers and returns Noop when none remain.
func NewMulti(pubs ...Publisher) Publisher {
	var m Multi
	for _, p := range pubs {
		if p != nil {
			m = append(m, p)
		}
	}
	switch len(m) {
	case 0:
		return Noop{}
	case 1:
		return m[0]
	default:
		return m
	}
}

// PublishEntryRecorded delivers e to every publisher. A failing publisher
// does not cancel the others; all failures are joined.
func (m Multi) PublishEntryRecorded(ctx context.Context, e core.EnergyEntry) error {
	return m.each(func(p Publisher) error { return p.PublishEntryRecorded(ctx, e) })
}

// PublishRateUpdated delivers r to every publisher, like PublishEntryRecorded.
func (m Multi) PublishRateUpdated(ctx context.Context, r core.BillingRate) error {
	return m.each(func(p Publisher) error { return p.PublishRateUpdated(ctx, r) })
}

func (m Multi) each(publish func(Publisher) error) error {
	var g errgroup.Group
	errs := make([]error, len(m))
	for i, p := range m {
		g.Go(func() error {
			if err := publish(p); err != nil {
				errs[i] = fmt.Errorf("publisher %d: %w", i, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Close closes every publisher and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for i, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
