package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tsuruyu/SimplyBeauty-IMS/internal/httputil"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/auth"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

type contextKey string

// SessionKey is the context key for the request's *domain.Session.
const SessionKey contextKey = "session"

// Session loads the session named by the session cookie, or starts a new
// anonymous one and sets its cookie. A session store outage fails the
// request with 503.
func Session(sessions *auth.SessionService, cookies httputil.CookieConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *domain.Session

			if token, ok := httputil.GetSessionCookie(r, cookies); ok {
				loaded, err := sessions.Load(r.Context(), token, r)
				switch {
				case err == nil:
					sess = loaded
				case errors.Is(err, domain.ErrStoreUnavailable):
					logger.Error("session store unavailable", "error", err)
					httputil.ServiceUnavailable(w)
					return
				}
			}

			if sess == nil {
				sess = sessions.New(r)
				token, err := sessions.Token(sess)
				if err != nil {
					logger.Error("failed to sign session cookie", "error", err)
					httputil.Error(w, http.StatusInternalServerError, "internal error")
					return
				}
				httputil.SetSessionCookie(w, token, sessions.TTL(), cookies)
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess *domain.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

// GetSession extracts the session from the request context.
func GetSession(ctx context.Context) (*domain.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(*domain.Session)
	return sess, ok && sess != nil
}
