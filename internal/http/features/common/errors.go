// Package common holds helpers shared by the feature handlers.
package common

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tsuruyu/SimplyBeauty-IMS/internal/httputil"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// LockedResponse is the body of a 423 response.
type LockedResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

// RedirectResponse points the client at another page.
type RedirectResponse struct {
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect"`
}

// WriteLocked writes the lockout response with a Retry-After header.
func WriteLocked(w http.ResponseWriter, locked *domain.LockedError) {
	secs := locked.RemainingSeconds()
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	httputil.JSON(w, http.StatusLocked, LockedResponse{
		Error:             "account locked due to too many failed login attempts, try again in " + strconv.Itoa(secs) + " seconds",
		RetryAfterSeconds: secs,
	})
}

// WriteError maps a service error onto a status code and message.
// Infrastructure failures never expose their cause.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		locked *domain.LockedError
		policy *domain.PolicyError
	)

	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.Error("store unavailable", "error", err)
		httputil.ServiceUnavailable(w)
	case errors.As(err, &locked):
		WriteLocked(w, locked)
	case errors.As(err, &policy):
		httputil.ValidationError(w, domain.ErrPolicyViolation.Error(), policy.Violations)
	case errors.Is(err, domain.ErrSecretTooYoung),
		errors.Is(err, domain.ErrSecretReused),
		errors.Is(err, domain.ErrConfirmationMismatch),
		errors.Is(err, domain.ErrInvalidSecurityQuestion),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidHandle),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrBrandNameMissing),
		errors.Is(err, domain.ErrInvalidRole):
		httputil.ValidationError(w, err.Error(), nil)
	case errors.Is(err, domain.ErrSecretConflict),
		errors.Is(err, domain.ErrUserAlreadyExists),
		errors.Is(err, domain.ErrHandleAlreadyTaken):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRecoverySessionExpired),
		errors.Is(err, domain.ErrSessionNotFound):
		httputil.JSON(w, http.StatusUnauthorized, RedirectResponse{Error: "unauthorized", Redirect: "/login"})
	case errors.Is(err, domain.ErrAccessDenied):
		httputil.Error(w, http.StatusForbidden, "access denied")
	default:
		logger.Error("unhandled service error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}

