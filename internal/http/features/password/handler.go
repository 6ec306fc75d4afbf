package password

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/features/common"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/middleware"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/httputil"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/auth"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// Handler handles password changes for signed-in users.
type Handler struct {
	logger       *slog.Logger
	accounts     *auth.AccountService
	sessions     *auth.SessionService
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new password handler.
func NewHandler(logger *slog.Logger, accounts *auth.AccountService, sessions *auth.SessionService, cookies httputil.CookieConfig) *Handler {
	return &Handler{
		logger:       logger,
		accounts:     accounts,
		sessions:     sessions,
		cookieConfig: cookies,
	}
}

// ChangeRequest represents a password change request.
type ChangeRequest struct {
	OldPassword     string `json:"old_password" validate:"required,max=1024"`
	NewPassword     string `json:"new_password" validate:"required,max=1024"`
	ConfirmPassword string `json:"confirm_password" validate:"required,max=1024"`
}

// Change replaces the password and signs the user out.
// POST /v1/me/password
func (h *Handler) Change(w http.ResponseWriter, r *http.Request) {
	var req ChangeRequest
	if !httputil.Bind(w, r, &req) {
		return
	}
	sess, _ := middleware.GetSession(r.Context())

	err := h.accounts.ChangePassword(r.Context(), sess, auth.ChangePasswordRequest{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	}, auth.ClientIP(r))
	if err != nil {
		if errors.Is(err, domain.ErrWrongSecret) {
			httputil.ValidationError(w, "current password is incorrect", nil)
			return
		}
		common.WriteError(w, h.logger, err)
		return
	}

	httputil.ClearSessionCookie(w, h.cookieConfig)
	if err := h.sessions.Destroy(r.Context(), sess); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		// The password is already changed but the session is still live.
		h.logger.Error("failed to destroy session after password change", "error", err)
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, common.RedirectResponse{
		Message:  "password changed, please sign in again",
		Redirect: "/login",
	})
}
