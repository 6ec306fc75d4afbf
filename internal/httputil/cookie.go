package httputil

import (
	"net/http"
	"time"
)

// CookieConfig holds cookie configuration.
type CookieConfig struct {
	Name     string
	Domain   string
	Path     string
	Secure   bool // Set to true in production (HTTPS)
	SameSite http.SameSite
}

// DefaultCookieConfig returns default cookie configuration.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     "ims_session",
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetSessionCookie sets the HttpOnly session cookie.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// GetSessionCookie extracts the session token from the request.
func GetSessionCookie(r *http.Request, cfg CookieConfig) (string, bool) {
	cookie, err := r.Cookie(cfg.Name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
