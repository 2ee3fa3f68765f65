package core

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the only accepted textual form of a calendar day.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar day without a time component.
	Date struct {
		time.Time
	}

	// EnergyEntry is one recorded appliance usage event. Entries are never
	// mutated after they are stored.
	EnergyEntry struct {
		ID         int64
		Date       Date
		Appliance  string
		PowerWatts int
		HoursUsed  float64
		EnergyKWh  float64
		CreatedAt  time.Time
	}

	// EntryInput carries the user supplied fields of a new entry.
	EntryInput struct {
		Date       Date
		Appliance  string
		PowerWatts int
		HoursUsed  float64
	}

	// BillingRate is one row of the append-only price history.
	BillingRate struct {
		ID            int64
		RatePerKWh    float64
		EffectiveDate Date
		CreatedAt     time.Time
	}

	// MonthlyReport is the dashboard view of a single calendar month.
	MonthlyReport struct {
		Month      int
		Year       int
		Entries    []EnergyEntry
		TotalKWh   float64
		RatePerKWh float64
		Bill       float64
	}
)

var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrEmptyAppliance = errors.New("empty appliance name")
	ErrInvalidNumber  = errors.New("not a valid number")
	ErrNotPositive    = errors.New("not greater than zero")
	ErrInvalidRate    = errors.New("rate per kWh must be greater than 0")
	ErrInvalidPeriod  = errors.New("invalid month or year")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an exact YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the calendar day of t in t's location.
func Today(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (in EntryInput) Validate() error {
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Appliance) == "" {
		return ErrEmptyAppliance
	}
	if in.PowerWatts <= 0 {
		return &FieldError{Field: "power_watts", Message: "Power rating must be greater than 0", Err: ErrNotPositive}
	}
	if !(in.HoursUsed > 0) {
		return &FieldError{Field: "hours_used", Message: "Hours used must be greater than 0", Err: ErrNotPositive}
	}
	return nil
}

// Period returns the month and year the entry is billed in.
func (e EnergyEntry) Period() (month, year int) {
	return e.Date.Month(), e.Date.Year()
}
