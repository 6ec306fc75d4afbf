package http

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/config"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/features/admin"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/features/me"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/features/password"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/features/recovery"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/features/session"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/middleware"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/httputil"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/audit"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/auth"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger              *slog.Logger
	LoginService        *auth.LoginService
	SessionService      *auth.SessionService
	RecoveryService     *auth.RecoveryService
	AccountService      *auth.AccountService
	ProvisioningService *auth.ProvisioningService
	Gate                *auth.Gate
	AuditTrail          audit.Reader
	Cookies             httputil.CookieConfig
	CORSAllowedOrigins  []string
	TrustedProxies      []netip.Prefix
	RateLimitConfig     config.RateLimitConfig
	SecurityHeaders     config.SecurityHeadersConfig
	Validation          config.ValidationConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	sessionHandler := session.NewHandler(cfg.Logger, cfg.LoginService, cfg.SessionService, cfg.Cookies)
	recoveryHandler := recovery.NewHandler(cfg.Logger, cfg.RecoveryService)
	passwordHandler := password.NewHandler(cfg.Logger, cfg.AccountService, cfg.SessionService, cfg.Cookies)
	meHandler := me.NewHandler(cfg.Logger, cfg.AccountService)
	adminHandler := admin.NewHandler(cfg.Logger, cfg.ProvisioningService, cfg.AuditTrail)

	anyRole := middleware.Authorize(cfg.Gate, domain.AllRoles, cfg.Logger)
	adminOnly := middleware.Authorize(cfg.Gate, domain.Roles(domain.RoleAdmin), cfg.Logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(cfg.SessionService, cfg.Cookies, cfg.Logger))

		r.Group(func(r chi.Router) {
			r.Use(rateLimiters[middleware.LimiterLogin])
			r.Post("/v1/auth/login", sessionHandler.Login)
		})
		r.Post("/v1/auth/logout", sessionHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(rateLimiters[middleware.LimiterRecovery])
			r.Post("/v1/auth/forgot-password", recoveryHandler.Forgot)
			r.Post("/v1/auth/verify-security", recoveryHandler.Verify)
			r.Get("/v1/auth/reset-password", recoveryHandler.ResetForm)
			r.Post("/v1/auth/reset-password", recoveryHandler.Reset)
		})

		r.Group(func(r chi.Router) {
			r.Use(anyRole)
			r.Get("/v1/me", meHandler.GetMe)
			r.Post("/v1/me/password", passwordHandler.Change)
		})

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/v1/admin/users", adminHandler.CreateUser)
			r.Get("/v1/admin/users", adminHandler.ListUsers)
			r.Get("/v1/admin/audit", adminHandler.ListAudit)
		})
	})

	return r
}
