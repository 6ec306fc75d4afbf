package admin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/features/common"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/middleware"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/httputil"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/audit"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/auth"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Handler serves the admin-only account and audit endpoints.
type Handler struct {
	logger       *slog.Logger
	provisioning *auth.ProvisioningService
	trail        audit.Reader
}

// NewHandler creates a new admin handler.
func NewHandler(logger *slog.Logger, provisioning *auth.ProvisioningService, trail audit.Reader) *Handler {
	return &Handler{logger: logger, provisioning: provisioning, trail: trail}
}

// CreateUserRequest provisions an account.
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,max=254"`
	Handle    string `json:"handle" validate:"omitempty,max=30"`
	FullName  string `json:"full_name" validate:"required,max=100"`
	BrandName string `json:"brand_name" validate:"omitempty,max=100"`
	Role      string `json:"role" validate:"required,oneof=admin vendor employee"`
	Password  string `json:"password" validate:"required,max=1024"`
	Question1 string `json:"question1" validate:"required,max=200"`
	Answer1   string `json:"answer1" validate:"required,max=200"`
	Question2 string `json:"question2" validate:"required,max=200"`
	Answer2   string `json:"answer2" validate:"required,max=200"`
}

// CreateUser provisions a new account.
// POST /v1/admin/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !httputil.Bind(w, r, &req) {
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	sess, _ := middleware.GetSession(r.Context())

	c, err := h.provisioning.CreateAccount(r.Context(), sess, auth.NewAccount{
		Email:     req.Email,
		Handle:    req.Handle,
		FullName:  req.FullName,
		BrandName: req.BrandName,
		Role:      role,
		Password:  req.Password,
		Questions: [2]auth.SecurityAnswer{
			{Question: req.Question1, Answer: req.Answer1},
			{Question: req.Question2, Answer: req.Answer2},
		},
	}, auth.ClientIP(r))
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, c.Profile())
}

// ListUsers lists account profiles.
// GET /v1/admin/users?limit=N
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	profiles, err := h.provisioning.ListAccounts(r.Context(), limit)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"users": profiles})
}

// ListAudit lists the most recent audit records, newest first.
// GET /v1/admin/audit?limit=N
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	records, err := h.trail.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list audit records", "error", err)
		httputil.ServiceUnavailable(w)
		return
	}
	if records == nil {
		records = []domain.AuditRecord{}
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"records": records})
}

// parseLimit reads ?limit, defaulting to 100 and capping at 500.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		httputil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}
