// Package http provides HTTP server and handler implementations.
//
// This file loads the page templates and writes HTML and JSON responses.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"energytracker/internal/core"
	"energytracker/internal/log"
)

const (
	pageDailyEntry = "daily_entry.html"
	pageDashboard  = "dashboard.html"
	layoutTemplate = "layout.html"
)

var templateFuncs = template.FuncMap{
	"currency":  core.FormatCurrency,
	"kwh":       func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"monthName": core.MonthName,
}

// parsePages builds one template set per page, each combined with the
// shared layout, from the templates directory of fsys.
func parsePages(fsys fs.FS, pages ...string) (map[string]*template.Template, error) {
	sets := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New(layoutTemplate).Funcs(templateFuncs).ParseFS(fsys,
			path.Join("templates", layoutTemplate),
			path.Join("templates", page),
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		sets[page] = t
	}
	return sets, nil
}

// render executes page into a buffer first so a template failure still
// produces a clean 500 instead of a truncated page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, page string, status int, data any) {
	logger := log.FromContext(r.Context())

	t, ok := s.pages[page]
	if !ok {
		logger.ErrorContext(r.Context(), "Template not loaded", log.FieldTemplate, page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldTemplate, page, log.FieldError, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
