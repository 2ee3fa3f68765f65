package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

const flashCookieName = "energy_flash"

// Flash categories, used as CSS classes by the layout.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// flashStore carries flashes across a redirect in a cookie signed with
// HMAC-SHA256. Tampered or unsigned cookies are ignored.
type flashStore struct {
	key    []byte
	secure bool
}

func newFlashStore(secret string, secure bool) flashStore {
	return flashStore{key: []byte(secret), secure: secure}
}

// Set replaces any pending flashes with flashes.
func (s flashStore) Set(w http.ResponseWriter, flashes ...Flash) {
	payload, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	value := base64.RawURLEncoding.EncodeToString(payload)
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value + "." + s.sign(value),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the pending flashes and clears the cookie.
func (s flashStore) Pop(w http.ResponseWriter, r *http.Request) []Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	value, sig, ok := strings.Cut(c.Value, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(s.sign(value))) {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(payload, &flashes); err != nil {
		return nil
	}
	return flashes
}

func (s flashStore) sign(value string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func errorFlashes(messages []string) []Flash {
	flashes := make([]Flash, 0, len(messages))
	for _, m := range messages {
		flashes = append(flashes, Flash{Category: FlashError, Message: m})
	}
	return flashes
}
