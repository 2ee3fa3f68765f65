package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energytracker/internal/core"
)

type recordingPublisher struct {
	mu       sync.Mutex
	entries  []core.EnergyEntry
	rates    []core.BillingRate
	err      error
	closed   bool
	closeErr error
}

func (p *recordingPublisher) PublishEntryRecorded(_ context.Context, e core.EnergyEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, e)
	return p.err
}

func (p *recordingPublisher) PublishRateUpdated(_ context.Context, r core.BillingRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rates = append(p.rates, r)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return p.closeErr
}

func TestNewMulti(t *testing.T) {
	assert.IsType(t, Noop{}, NewMulti())
	assert.IsType(t, Noop{}, NewMulti(nil, nil))

	single := &recordingPublisher{}
	assert.Same(t, single, NewMulti(nil, single))

	assert.Len(t, NewMulti(&recordingPublisher{}, &recordingPublisher{}), 2)
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recordingPublisher{}, &recordingPublisher{}
	pub := NewMulti(a, b)

	e := core.EnergyEntry{ID: 1, Date: core.NewDate(2024, 1, 15), Appliance: "AC", EnergyKWh: 12}
	require.NoError(t, pub.PublishEntryRecorded(context.Background(), e))
	require.NoError(t, pub.PublishRateUpdated(context.Background(), core.BillingRate{ID: 2, RatePerKWh: 10.5}))

	for _, p := range []*recordingPublisher{a, b} {
		require.Len(t, p.entries, 1)
		assert.Equal(t, "AC", p.entries[0].Appliance)
		require.Len(t, p.rates, 1)
		assert.Equal(t, 10.5, p.rates[0].RatePerKWh)
	}
}

func TestMultiReturnsPublishError(t *testing.T) {
	boom := errors.New("broker down")
	pub := NewMulti(&recordingPublisher{}, &recordingPublisher{err: boom})

	err := pub.PublishEntryRecorded(context.Background(), core.EnergyEntry{})
	assert.ErrorIs(t, err, boom)
}

// slowPublisher records an event only if ctx is still live after a delay.
type slowPublisher struct {
	recordingPublisher
	delay time.Duration
}

func (p *slowPublisher) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.delay):
		return nil
	}
}

func (p *slowPublisher) PublishEntryRecorded(ctx context.Context, e core.EnergyEntry) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	return p.recordingPublisher.PublishEntryRecorded(ctx, e)
}

func (p *slowPublisher) PublishRateUpdated(ctx context.Context, r core.BillingRate) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	return p.recordingPublisher.PublishRateUpdated(ctx, r)
}

func TestMultiFailureDoesNotCancelOtherPublishers(t *testing.T) {
	boom := errors.New("broker down")
	failing := &recordingPublisher{err: boom}
	healthy := &slowPublisher{delay: 50 * time.Millisecond}
	pub := NewMulti(failing, healthy)

	err := pub.PublishEntryRecorded(context.Background(), core.EnergyEntry{ID: 7, Appliance: "Heater"})
	assert.ErrorIs(t, err, boom)
	require.Len(t, healthy.entries, 1)
	assert.Equal(t, int64(7), healthy.entries[0].ID)

	err = pub.PublishRateUpdated(context.Background(), core.BillingRate{RatePerKWh: 9})
	assert.ErrorIs(t, err, boom)
	require.Len(t, healthy.rates, 1)
}

func TestMultiJoinsEveryFailure(t *testing.T) {
	first, second := errors.New("amqp down"), errors.New("mqtt down")
	pub := NewMulti(&recordingPublisher{err: first}, &recordingPublisher{err: second})

	err := pub.PublishEntryRecorded(context.Background(), core.EnergyEntry{})
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}

func TestMultiCloseJoinsErrors(t *testing.T) {
	closeErr := errors.New("close failed")
	a, b := &recordingPublisher{}, &recordingPublisher{closeErr: closeErr}

	err := NewMulti(a, b).Close()
	assert.ErrorIs(t, err, closeErr)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestEntryRecordedMessageJSON(t *testing.T) {
	e := core.EnergyEntry{
		ID:         42,
		Date:       core.NewDate(2024, 2, 29),
		Appliance:  "Heater",
		PowerWatts: 2000,
		HoursUsed:  5,
		EnergyKWh:  10,
	}
	body, err := NewEntryRecordedMessage(e).ToJSON()
	require.NoError(t, err)

	msg, err := EntryRecordedMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, EventEntryRecorded, msg.Event)
	assert.Equal(t, int64(42), msg.ID)
	assert.Equal(t, "2024-02-29", msg.Date)
	assert.Equal(t, 10.0, msg.EnergyKWh)

	_, err = EntryRecordedMessageFromJSON([]byte("{"))
	assert.Error(t, err)
}

func TestRateUpdatedMessageJSON(t *testing.T) {
	body, err := NewRateUpdatedMessage(core.BillingRate{
		ID: 3, RatePerKWh: 10.5, EffectiveDate: core.NewDate(2024, 3, 1),
	}).ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"event":"rate.updated"`)
	assert.Contains(t, string(body), `"effective_date":"2024-03-01"`)
	assert.Contains(t, string(body), `"rate_per_kwh":10.5`)
}
