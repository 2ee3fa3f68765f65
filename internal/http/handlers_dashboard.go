package http

import (
	"fmt"
	"net/http"

	"energytracker/internal/core"
	"energytracker/internal/log"
)

type monthLink struct {
	Month int
	Year  int
	Label string
}

func (l monthLink) URL() string {
	return fmt.Sprintf("/dashboard?month=%d&year=%d", l.Month, l.Year)
}

type dashboardPage struct {
	Title     string
	Flashes   []Flash
	Report    core.MonthlyReport
	MonthName string
	Previous  *monthLink
	Next      *monthLink
}

// newMonthLink returns nil for years the dashboard does not accept.
func newMonthLink(month, year int) *monthLink {
	if year < minDashboardYear || year > maxDashboardYear {
		return nil
	}
	return &monthLink{Month: month, Year: year, Label: core.MonthName(month)}
}

func newDashboardPage(report core.MonthlyReport, flashes []Flash) dashboardPage {
	pm, py := report.Previous()
	nm, ny := report.Next()
	return dashboardPage{
		Title:     "Energy Dashboard",
		Flashes:   flashes,
		Report:    report,
		MonthName: report.MonthName(),
		Previous:  newMonthLink(pm, py),
		Next:      newMonthLink(nm, ny),
	}
}

// handleDashboard renders the entries, total energy and bill of one month.
// Out of range parameters fall back to the current month and year.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := ParseMonthParams(r.URL.Query(), s.now())
	flashes := s.flash.Pop(w, r)

	report, err := s.svc.MonthlyReport(ctx, params.Month, params.Year)
	if err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentBilling).ErrorContext(ctx, "Monthly report error",
			log.NewFields().WithOperation(log.OpRead).WithPeriod(params.Month, params.Year).WithError(err).ToSlice()...)
		report = core.NewMonthlyReport(params.Month, params.Year, nil, 0)
		flashes = append(flashes, Flash{Category: FlashError, Message: fmt.Sprintf("Error loading dashboard: %s", err)})
	}

	s.render(w, r, pageDashboard, http.StatusOK, newDashboardPage(report, flashes))
}
