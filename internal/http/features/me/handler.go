package me

import (
	"log/slog"
	"net/http"

	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/features/common"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/middleware"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/httputil"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/auth"
)

// Handler handles user profile endpoints.
type Handler struct {
	logger   *slog.Logger
	accounts *auth.AccountService
}

// NewHandler creates a new me handler.
func NewHandler(logger *slog.Logger, accounts *auth.AccountService) *Handler {
	return &Handler{logger: logger, accounts: accounts}
}

// GetMe returns the current user's profile.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())

	profile, err := h.accounts.Profile(r.Context(), sess)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, profile)
}
