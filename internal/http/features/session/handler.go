package session

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/features/common"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/middleware"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/httputil"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/auth"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// Handler handles login and logout.
type Handler struct {
	logger       *slog.Logger
	login        *auth.LoginService
	sessions     *auth.SessionService
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, login *auth.LoginService, sessions *auth.SessionService, cookies httputil.CookieConfig) *Handler {
	return &Handler{
		logger:       logger,
		login:        login,
		sessions:     sessions,
		cookieConfig: cookies,
	}
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Identity string `json:"identity" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

// LoginResponse tells the client where the role lands.
type LoginResponse struct {
	Redirect    string         `json:"redirect"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	Profile     domain.Profile `json:"profile"`
}

const invalidCredentials = "invalid username or password"

// Login authenticates a user and binds them to a fresh session.
// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.Bind(w, r, &req) {
		return
	}

	res, err := h.login.Attempt(r.Context(), req.Identity, req.Password, auth.ClientIP(r))
	if err != nil {
		if errors.Is(err, domain.ErrUnknownIdentity) || errors.Is(err, domain.ErrWrongSecret) {
			httputil.Error(w, http.StatusUnauthorized, invalidCredentials)
			return
		}
		common.WriteError(w, h.logger, err)
		return
	}

	prev, _ := middleware.GetSession(r.Context())
	sess, err := h.sessions.Establish(r.Context(), prev, res, r)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	token, err := h.sessions.Token(sess)
	if err != nil {
		h.logger.Error("failed to sign session cookie", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httputil.SetSessionCookie(w, token, h.sessions.TTL(), h.cookieConfig)

	httputil.JSON(w, http.StatusOK, LoginResponse{
		Redirect:    res.LandingPath,
		LastLoginAt: res.LastLoginAt,
		Profile:     res.Profile,
	})
}

// Logout ends the current session.
// POST /v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := middleware.GetSession(r.Context()); ok {
		h.login.Logout(r.Context(), sess, auth.ClientIP(r))
		if err := h.sessions.Destroy(r.Context(), sess); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			common.WriteError(w, h.logger, err)
			return
		}
	}

	httputil.ClearSessionCookie(w, h.cookieConfig)
	httputil.JSON(w, http.StatusOK, common.RedirectResponse{Redirect: "/login?logout=success"})
}
