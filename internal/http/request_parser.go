// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"energytracker/internal/core"
)

const (
	minDashboardYear = 2000
	maxDashboardYear = 2100
)

// Validation messages shown on the entry form.
const (
	msgInvalidDate      = "Please provide a valid date"
	msgMissingAppliance = "Please provide an appliance name"
	msgPowerTooSmall    = "Power rating must be at least 1 watt"
	msgPowerTooLarge    = "Power rating is too large"
)

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts month and year from query parameters. A missing,
// non numeric or out of range month falls back to the month of now, and a
// year outside 2000-2100 to the year of now.
func ParseMonthParams(query url.Values, now time.Time) MonthParams {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			params.Month = m
		}
	}
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y >= minDashboardYear && y <= maxDashboardYear {
			params.Year = y
		}
	}

	return params
}

// EntryForm holds the raw values submitted from the daily entry form. They
// are redisplayed unchanged when validation fails.
type EntryForm struct {
	Date       string
	Appliance  string
	PowerWatts string
	HoursUsed  string
}

// ParseEntryForm reads the entry fields from form.
func ParseEntryForm(form url.Values) EntryForm {
	return EntryForm{
		Date:       sanitizeInput(form.Get("date")),
		Appliance:  sanitizeInput(form.Get("appliance")),
		PowerWatts: sanitizeInput(form.Get("power_watts")),
		HoursUsed:  sanitizeInput(form.Get("hours_used")),
	}
}

// Validate checks every field and returns one message per failed rule, in
// form order. The returned input is only meaningful when no message is
// returned. Power is accepted as a real number and truncated to whole watts.
func (f EntryForm) Validate() (core.EntryInput, []string) {
	var (
		in   core.EntryInput
		errs []string
	)

	if d, err := core.ParseDate(f.Date); err != nil {
		errs = append(errs, msgInvalidDate)
	} else {
		in.Date = d
	}

	if !core.ValidAppliance(f.Appliance) {
		errs = append(errs, msgMissingAppliance)
	} else {
		in.Appliance = strings.TrimSpace(f.Appliance)
	}

	if power, err := core.ValidatePositiveNumber(f.PowerWatts, "Power rating"); err != nil {
		errs = append(errs, err.Error())
	} else {
		switch {
		case power > math.MaxInt32:
			errs = append(errs, msgPowerTooLarge)
		case power < 1:
			errs = append(errs, msgPowerTooSmall)
		default:
			in.PowerWatts = int(power)
		}
	}

	if hours, err := core.ValidatePositiveNumber(f.HoursUsed, "Hours used"); err != nil {
		errs = append(errs, err.Error())
	} else {
		in.HoursUsed = hours
	}

	return in, errs
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
