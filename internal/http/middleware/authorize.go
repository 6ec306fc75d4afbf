package middleware

import (
	"log/slog"
	"net/http"

	"github.com/tsuruyu/SimplyBeauty-IMS/internal/httputil"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/auth"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// LoginRedirect is the body sent when a route needs a signed-in session.
type LoginRedirect struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

// Authorize admits only sessions whose role is in allowed.
// Must be used after Session middleware.
func Authorize(gate *auth.Gate, allowed domain.RoleSet, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := GetSession(r.Context())

			decision, _ := gate.Authorize(r.Context(), sess, allowed, r.URL.Path, auth.ClientIP(r))
			switch decision {
			case auth.Allow:
				next.ServeHTTP(w, r)
			case auth.RequireLogin:
				httputil.JSON(w, http.StatusUnauthorized, LoginRedirect{Error: "unauthorized", Redirect: "/login"})
			default:
				logger.Warn("access denied", "path", r.URL.Path, "role", sess.Role.String(), "allowed", allowed.String())
				httputil.Error(w, http.StatusForbidden, "access denied")
			}
		})
	}
}
