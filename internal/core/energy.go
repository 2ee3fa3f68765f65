package core

import (
	"fmt"
	"time"
)

// CurrencySymbol prefixes every rendered amount.
const CurrencySymbol = "₹"

// DefaultRatePerKWh is used when the rate history is empty.
const DefaultRatePerKWh = 7.5

// EnergyKWh converts a power rating and usage duration into kilowatt-hours.
// No rounding is applied; values are rounded only when displayed.
func EnergyKWh(powerWatts int, hoursUsed float64) float64 {
	return float64(powerWatts) * hoursUsed / 1000
}

// TotalKWh sums the energy of all entries. An empty slice sums to 0.
func TotalKWh(entries []EnergyEntry) float64 {
	var total float64
	for _, e := range entries {
		total += e.EnergyKWh
	}
	return total
}

// MonthlyBill prices the summed energy of entries at ratePerKWh.
// The bill of an empty month is 0 whatever the rate.
func MonthlyBill(entries []EnergyEntry, ratePerKWh float64) float64 {
	if len(entries) == 0 {
		return 0
	}
	return TotalKWh(entries) * ratePerKWh
}

// FormatCurrency renders amount with two decimals, e.g. "₹123.45".
func FormatCurrency(amount float64) string {
	return fmt.Sprintf("%s%.2f", CurrencySymbol, amount)
}

// MonthName maps 1-12 to English month names and anything else to "Unknown".
func MonthName(n int) string {
	if n < 1 || n > 12 {
		return "Unknown"
	}
	return time.Month(n).String()
}

// NewMonthlyReport aggregates the entries of one month at the given rate.
func NewMonthlyReport(month, year int, entries []EnergyEntry, ratePerKWh float64) MonthlyReport {
	if entries == nil {
		entries = []EnergyEntry{}
	}
	return MonthlyReport{
		Month:      month,
		Year:       year,
		Entries:    entries,
		TotalKWh:   TotalKWh(entries),
		RatePerKWh: ratePerKWh,
		Bill:       MonthlyBill(entries, ratePerKWh),
	}
}

// MonthName returns the English name of the report month.
func (r MonthlyReport) MonthName() string {
	return MonthName(r.Month)
}

// Previous returns the month and year preceding the report period.
func (r MonthlyReport) Previous() (month, year int) {
	if r.Month <= 1 {
		return 12, r.Year - 1
	}
	return r.Month - 1, r.Year
}

// Next returns the month and year following the report period.
func (r MonthlyReport) Next() (month, year int) {
	if r.Month >= 12 {
		return 1, r.Year + 1
	}
	return r.Month + 1, r.Year
}
