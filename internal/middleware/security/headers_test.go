package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAppPolicyHeaders(t *testing.T) {
	rec := serve(Headers(AppPolicy(false))(okHandler), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "same-origin", rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("X-XSS-Protection"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "default-src 'none'")
	assert.Contains(t, csp, "script-src 'self'")
	assert.Contains(t, csp, "form-action 'self'")
	assert.NotContains(t, csp, "unsafe-inline")
	assert.NotContains(t, csp, "https:")
}

func TestAppPolicyDeniesUnusedFeatures(t *testing.T) {
	rec := serve(Headers(AppPolicy(false))(okHandler), httptest.NewRequest(http.MethodGet, "/", nil))

	pp := rec.Header().Get("Permissions-Policy")
	for _, f := range []string{"camera", "microphone", "geolocation", "payment", "usb", "interest-cohort", "browsing-topics"} {
		assert.Contains(t, pp, f+"=()")
	}
	assert.Len(t, strings.Split(pp, ", "), len(deniedFeatures))
}

func TestHeadersHSTSOnlyOverTLS(t *testing.T) {
	h := Headers(AppPolicy(true))(okHandler)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = serve(h, req)
	assert.Equal(t, "max-age=15552000", rec.Header().Get("Strict-Transport-Security"))
}

func TestHeadersSkipEmptyValues(t *testing.T) {
	rec := serve(Headers(Policy{FrameOptions: "SAMEORIGIN"})(okHandler), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	_, present := rec.Header()["Content-Security-Policy"]
	assert.False(t, present)
	_, present = rec.Header()["Cache-Control"]
	assert.False(t, present)
}

func TestCacheStaticOverridesNoStore(t *testing.T) {
	h := Headers(AppPolicy(false))(CacheStatic(time.Hour)(okHandler))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	rec = serve(CacheStatic(0)(okHandler), httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}
