package recovery

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

// Handler handles the forgot-password flow.
type Handler struct {
	logger   *slog.Logger
	recovery *auth.RecoveryService
}

// NewHandler creates a new recovery handler.
func NewHandler(logger *slog.Logger, recovery *auth.RecoveryService) *Handler {
	return &Handler{logger: logger, recovery: recovery}
}

// ForgotRequest starts a recovery.
type ForgotRequest struct {
	Identity string `json:"identity" validate:"required,max=254"`
}

// VerifyRequest answers both security questions.
type VerifyRequest struct {
	Identity string `json:"identity" validate:"required,max=254"`
	Answer1  string `json:"answer1" validate:"required,max=200"`
	Answer2  string `json:"answer2" validate:"required,max=200"`
}

// ResetRequest sets a new password and security answers. Fields are checked
// by the service so that a missing recovery marker is reported first.
type ResetRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Question1       string `json:"question1"`
	Answer1         string `json:"answer1"`
	Question2       string `json:"question2"`
	Answer2         string `json:"answer2"`
}

// MismatchResponse repeats the questions after a wrong answer.
type MismatchResponse struct {
	Error     string    `json:"error"`
	Questions [2]string `json:"questions"`
}

const unknownIdentity = "no account found for that email or username"

// Forgot returns the security questions for an identity.
// POST /v1/auth/forgot-password
func (h *Handler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req ForgotRequest
	if !httputil.Bind(w, r, &req) {
		return
	}

	challenge, err := h.recovery.Request(r.Context(), req.Identity, auth.ClientIP(r))
	if err != nil {
		if errors.Is(err, domain.ErrUnknownIdentity) {
			httputil.Error(w, http.StatusNotFound, unknownIdentity)
			return
		}
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, challenge)
}

// Verify checks both answers and marks the session for reset.
// POST /v1/auth/verify-security
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !httputil.Bind(w, r, &req) {
		return
	}
	sess, _ := middleware.GetSession(r.Context())

	challenge, err := h.recovery.Verify(r.Context(), sess, req.Identity, [2]string{req.Answer1, req.Answer2}, auth.ClientIP(r))
	switch {
	case err == nil:
		httputil.JSON(w, http.StatusOK, common.RedirectResponse{Redirect: "/reset_password"})
	case errors.Is(err, domain.ErrRecoveryAnswerMismatch):
		resp := MismatchResponse{Error: "security answers do not match"}
		if challenge != nil {
			resp.Questions = challenge.Questions
		}
		httputil.JSON(w, http.StatusUnauthorized, resp)
	case errors.Is(err, domain.ErrUnknownIdentity):
		httputil.Error(w, http.StatusNotFound, unknownIdentity)
	default:
		common.WriteError(w, h.logger, err)
	}
}

// ResetForm returns what the reset form shows: the identity and its current
// questions.
// GET /v1/auth/reset-password
func (h *Handler) ResetForm(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())

	challenge, err := h.recovery.PresentReset(r.Context(), sess, auth.ClientIP(r))
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, challenge)
}

// Reset completes the recovery.
// POST /v1/auth/reset-password
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !httputil.Bind(w, r, &req) {
		return
	}
	sess, _ := middleware.GetSession(r.Context())

	err := h.recovery.Reset(r.Context(), sess, auth.ResetRequest{
		Password: req.Password,
		Confirm:  req.ConfirmPassword,
		Answers: [2]auth.SecurityAnswer{
			{Question: req.Question1, Answer: req.Answer1},
			{Question: req.Question2, Answer: req.Answer2},
		},
	}, auth.ClientIP(r))
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}

	httputil.JSON(w, http.StatusOK, common.RedirectResponse{
		Message:  "password reset successful, please sign in",
		Redirect: "/login",
	})
}
