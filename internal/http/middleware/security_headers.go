package middleware

import (
	"fmt"
	"net/http"

	"github.com/tsuruyu/SimplyBeauty-IMS/internal/config"
)

type header struct {
	name, value string
}

// securityHeaders lists the configured headers, skipping empty ones.
func securityHeaders(cfg config.SecurityHeadersConfig) []header {
	var hsts string
	if cfg.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge)
	}

	all := []header{
		{"Content-Security-Policy", cfg.CSP},
		{"Strict-Transport-Security", hsts},
		{"X-Frame-Options", cfg.FrameOptions},
		{"X-Content-Type-Options", cfg.ContentTypeOptions},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Permissions-Policy", cfg.PermissionsPolicy},
		{"Cache-Control", cfg.CacheControl},
		{"Cross-Origin-Opener-Policy", cfg.CrossOriginOpener},
		{"Cross-Origin-Resource-Policy", cfg.CrossOriginPolicy},
	}

	out := all[:0]
	for _, h := range all {
		if h.value != "" {
			out = append(out, h)
		}
	}
	return out
}

// SecurityHeaders adds the configured security headers to every response.
// Session and account responses must never be cached, so Cache-Control is
// part of the set.
func SecurityHeaders(cfg config.SecurityHeadersConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	headers := securityHeaders(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range headers {
				w.Header().Set(h.name, h.value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
