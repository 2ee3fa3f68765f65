package events

import (
	"encoding/json"
	"time"

	"energytracker/internal/core"
)

// Event names, also used as routing keys.
const (
	EventEntryRecorded = "entry.recorded"
	EventRateUpdated   = "rate.updated"
)

// EntryRecordedMessage is published after an entry has been stored.
type EntryRecordedMessage struct {
	Event      string    `json:"event"`
	ID         int64     `json:"id"`
	Date       string    `json:"date"`
	Appliance  string    `json:"appliance"`
	PowerWatts int       `json:"power_watts"`
	HoursUsed  float64   `json:"hours_used"`
	EnergyKWh  float64   `json:"energy_kwh"`
	Timestamp  time.Time `json:"timestamp"`
}

// RateUpdatedMessage is published after a new billing rate is appended.
type RateUpdatedMessage struct {
	Event         string    `json:"event"`
	ID            int64     `json:"id"`
	RatePerKWh    float64   `json:"rate_per_kwh"`
	EffectiveDate string    `json:"effective_date"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewEntryRecordedMessage builds the message for e.
func NewEntryRecordedMessage(e core.EnergyEntry) *EntryRecordedMessage {
	return &EntryRecordedMessage{
		Event:      EventEntryRecorded,
		ID:         e.ID,
		Date:       e.Date.String(),
		Appliance:  e.Appliance,
		PowerWatts: e.PowerWatts,
		HoursUsed:  e.HoursUsed,
		EnergyKWh:  e.EnergyKWh,
		Timestamp:  time.Now().UTC(),
	}
}

// NewRateUpdatedMessage builds the message for r.
func NewRateUpdatedMessage(r core.BillingRate) *RateUpdatedMessage {
	return &RateUpdatedMessage{
		Event:         EventRateUpdated,
		ID:            r.ID,
		RatePerKWh:    r.RatePerKWh,
		EffectiveDate: r.EffectiveDate.String(),
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ToJSON converts the message to JSON bytes
func (m *RateUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryRecordedMessageFromJSON decodes a message produced by ToJSON.
func EntryRecordedMessageFromJSON(data []byte) (*EntryRecordedMessage, error) {
	var msg EntryRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
