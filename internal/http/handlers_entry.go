package http

import (
	"fmt"
	"net/http"

	"energytracker/internal/core"
	"energytracker/internal/log"
)

type entryPage struct {
	Title   string
	Flashes []Flash
	Form    EntryForm
	MaxDate string
}

func (s *Server) entryPage(flashes []Flash, form EntryForm) entryPage {
	return entryPage{
		Title:   "Daily Energy Entry",
		Flashes: flashes,
		Form:    form,
		MaxDate: core.Today(s.now()).String(),
	}
}

// handleEntryForm renders the entry form with today's date filled in.
func (s *Server) handleEntryForm(w http.ResponseWriter, r *http.Request) {
	form := EntryForm{Date: core.Today(s.now()).String()}
	s.render(w, r, pageDailyEntry, http.StatusOK, s.entryPage(s.flash.Pop(w, r), form))
}

// handleCreateEntry validates and stores a submitted entry. Validation and
// storage failures re-render the form with HTTP 200; success redirects to
// the dashboard of the entry's month.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentEntry)

	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "Parse form error", log.FieldError, err)
		s.render(w, r, pageDailyEntry, http.StatusOK,
			s.entryPage(errorFlashes([]string{"Invalid form submission"}), EntryForm{}))
		return
	}

	form := ParseEntryForm(r.PostForm)
	in, problems := form.Validate()
	if len(problems) > 0 {
		logger.InfoContext(ctx, "Entry rejected",
			log.FieldErrorType, log.ErrorTypeValidation, "problems", problems)
		s.render(w, r, pageDailyEntry, http.StatusOK, s.entryPage(errorFlashes(problems), form))
		return
	}

	entry, err := s.svc.AddEntry(ctx, in)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to add entry",
			log.NewFields().WithOperation(log.OpCreate).WithError(err).ToSlice()...)
		msg := fmt.Sprintf("Error adding entry: %s", err)
		s.render(w, r, pageDailyEntry, http.StatusOK, s.entryPage(errorFlashes([]string{msg}), EntryForm{}))
		return
	}

	s.flash.Set(w, Flash{
		Category: FlashSuccess,
		Message:  fmt.Sprintf("Entry added successfully! Energy consumed: %.2f kWh", entry.EnergyKWh),
	})
	month, year := entry.Period()
	http.Redirect(w, r, fmt.Sprintf("/dashboard?month=%d&year=%d", month, year), http.StatusSeeOther)
}
