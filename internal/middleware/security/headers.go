// Package security sets the browser hardening headers on every response.
package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Browser features the tracker never uses. Each is disabled for every
// origin, including our own.
var deniedFeatures = []string{
	"accelerometer",
	"browsing-topics",
	"camera",
	"display-capture",
	"geolocation",
	"gyroscope",
	"interest-cohort",
	"magnetometer",
	"microphone",
	"payment",
	"usb",
}

// Policy describes the headers applied to every response. Empty fields are
// not sent.
type Policy struct {
	CSP               string
	PermissionsPolicy string
	ReferrerPolicy    string
	FrameOptions      string
	CrossOriginOpener string
	CrossOriginRes    string

	// CacheControl is sent on every response; static assets override it.
	CacheControl string

	// HSTSMaxAge is only sent on TLS requests. Zero disables it.
	HSTSMaxAge time.Duration
}

// AppPolicy returns the policy for the entry form and dashboard pages: one
// same-origin script and stylesheet, forms posting back to ourselves, and no
// framing. Pages carry one-shot flash messages, so they are never cached.
func AppPolicy(hsts bool) Policy {
	p := Policy{
		CSP: strings.Join([]string{
			"default-src 'none'",
			"script-src 'self'",
			"style-src 'self'",
			"img-src 'self'",
			"form-action 'self'",
			"frame-ancestors 'none'",
			"base-uri 'none'",
		}, "; "),
		PermissionsPolicy: denyAll(deniedFeatures),
		ReferrerPolicy:    "same-origin",
		FrameOptions:      "DENY",
		CrossOriginOpener: "same-origin",
		CrossOriginRes:    "same-origin",
		CacheControl:      "no-store",
	}
	if hsts {
		p.HSTSMaxAge = 180 * 24 * time.Hour
	}
	return p
}

func denyAll(features []string) string {
	parts := make([]string, len(features))
	for i, f := range features {
		parts[i] = f + "=()"
	}
	return strings.Join(parts, ", ")
}

// Headers returns middleware applying p to every response.
func Headers(p Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			setIf(h, "Content-Security-Policy", p.CSP)
			setIf(h, "Permissions-Policy", p.PermissionsPolicy)
			setIf(h, "Referrer-Policy", p.ReferrerPolicy)
			setIf(h, "X-Frame-Options", p.FrameOptions)
			setIf(h, "Cross-Origin-Opener-Policy", p.CrossOriginOpener)
			setIf(h, "Cross-Origin-Resource-Policy", p.CrossOriginRes)
			setIf(h, "Cache-Control", p.CacheControl)

			// Never includeSubDomains or preload.
			if r.TLS != nil && p.HSTSMaxAge > 0 {
				h.Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d", int(p.HSTSMaxAge.Seconds())))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setIf(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

// CacheStatic marks embedded assets as cacheable for maxAge.
func CacheStatic(maxAge time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds())))
			}
			next.ServeHTTP(w, r)
		})
	}
}
