// Package idm assembles the account-security subsystem of the inventory
// app: login with lockout, security-question recovery, role-gated access and
// the audit trail.
//
// Basic usage:
//
//	cfg, _ := config.Load()
//	sec, err := idm.New(idm.Config{Settings: cfg})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r := chi.NewRouter()
//	r.Mount("/", sec.Handler())
//	r.With(sec.RequireRoles(domain.RoleVendor)).Get("/vendor/product_dashboard", dashboard)
//
// Without Users, Sessions or AuditSink the instance keeps everything in
// memory, which suits tests and local runs.
package idm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tsuruyu/SimplyBeauty-IMS/internal/config"
	httpserver "github.com/tsuruyu/SimplyBeauty-IMS/internal/http"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/http/middleware"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/httputil"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/audit"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/auth"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/repository"
)

// Config holds the configuration for the IDM library.
type Config struct {
	// Settings is the loaded application configuration (required).
	Settings *config.Config

	// Users is the credential repository (default: in-memory).
	Users auth.CredentialRepository

	// Sessions is the session store (default: in-memory).
	Sessions auth.SessionStore

	// AuditSink is the durable audit trail (default: in-memory). When it
	// also implements audit.Reader the admin audit listing reads from it.
	AuditSink audit.Sink

	// Hasher overrides the argon2id parameters (default: auth.DefaultHasher).
	Hasher *auth.Hasher

	// Logger is the structured logger (default: slog.Default()).
	Logger *slog.Logger
}

// IDM is the assembled security subsystem.
type IDM struct {
	config       Config
	cookies      httputil.CookieConfig
	trail        audit.Reader
	store        *auth.CredentialStore
	sessions     *auth.SessionService
	login        *auth.LoginService
	recovery     *auth.RecoveryService
	accounts     *auth.AccountService
	provisioning *auth.ProvisioningService
	gate         *auth.Gate
}

// New wires the services from cfg.
func New(cfg Config) (*IDM, error) {
	if cfg.Settings == nil {
		return nil, errors.New("idm: Settings is required")
	}
	applyDefaults(&cfg)
	s := cfg.Settings

	var trail audit.Reader
	if r, ok := cfg.AuditSink.(audit.Reader); ok {
		trail = r
	} else {
		trail = emptyTrail{}
	}
	recorder := audit.NewRecorder(cfg.AuditSink, cfg.Logger, s.StoreTimeout)

	store := auth.NewCredentialStore(cfg.Users, auth.NewPasswordPolicy(s.PasswordPolicy), cfg.Hasher, auth.StoreConfig{
		LockoutThreshold: s.Lockout.Threshold,
		LockoutDuration:  s.Lockout.Duration,
		MinSecretAge:     s.PasswordPolicy.MinAge,
		Timeout:          s.StoreTimeout,
	})
	sessions := auth.NewSessionService(auth.SessionConfig{
		TTL:                s.SessionTTL,
		Secret:             []byte(s.SessionSecret),
		Issuer:             s.SessionIssuer,
		Timeout:            s.StoreTimeout,
		FingerprintEnabled: s.SessionFingerprint,
	}, cfg.Sessions)

	cookies := httputil.DefaultCookieConfig()
	if s.SessionCookieName != "" {
		cookies.Name = s.SessionCookieName
	}
	cookies.Secure = s.CookieSecure

	return &IDM{
		config:   cfg,
		cookies:  cookies,
		trail:    trail,
		store:    store,
		sessions: sessions,
		login:    auth.NewLoginService(store, recorder, cfg.Logger),
		recovery: auth.NewRecoveryService(store, sessions, recorder, cfg.Logger, auth.RecoveryConfig{
			MarkerTTL:       s.RecoveryMarkerTTL,
			UniformResponse: s.RecoveryUniformResponse,
		}),
		accounts: auth.NewAccountService(store, recorder, cfg.Logger),
		provisioning: auth.NewProvisioningService(store, recorder, cfg.Logger, auth.ProvisioningConfig{
			StrictEmailValidation: s.Validation.StrictEmailValidation,
			BlockDisposableEmail:  s.Validation.BlockDisposableEmail,
		}),
		gate: auth.NewGate(recorder, cfg.Logger),
	}, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Users == nil {
		cfg.Users = repository.NewMemoryUsersRepository()
	}
	if cfg.Sessions == nil {
		cfg.Sessions = repository.NewMemorySessionsRepository()
	}
	if cfg.AuditSink == nil {
		cfg.AuditSink = audit.NewMemorySink()
	}
	if cfg.Hasher == nil {
		cfg.Hasher = auth.DefaultHasher
	}
}

// Bootstrap seeds the configured admin account when it does not exist yet.
func (i *IDM) Bootstrap(ctx context.Context) (bool, error) {
	return i.provisioning.Bootstrap(ctx, i.config.Settings.Bootstrap)
}

// Handler returns the JSON API with all auth, account and admin routes:
//
//	POST /v1/auth/login            - Login with email or handle
//	POST /v1/auth/logout           - End the session
//	POST /v1/auth/forgot-password  - Show security questions
//	POST /v1/auth/verify-security  - Answer security questions
//	GET  /v1/auth/reset-password   - Reset form (after verification)
//	POST /v1/auth/reset-password   - Set new password and answers
//	GET  /v1/me                    - Current profile (any role)
//	POST /v1/me/password           - Change password (any role)
//	POST /v1/admin/users           - Create account (admin)
//	GET  /v1/admin/users           - List accounts (admin)
//	GET  /v1/admin/audit           - Recent audit records (admin)
//	GET  /health                   - Health check
func (i *IDM) Handler() http.Handler {
	s := i.config.Settings
	return httpserver.NewRouter(httpserver.RouterConfig{
		Logger:              i.config.Logger,
		LoginService:        i.login,
		SessionService:      i.sessions,
		RecoveryService:     i.recovery,
		AccountService:      i.accounts,
		ProvisioningService: i.provisioning,
		Gate:                i.gate,
		AuditTrail:          i.trail,
		Cookies:             i.cookies,
		CORSAllowedOrigins:  s.CORSAllowedOrigins,
		TrustedProxies:      s.TrustedProxies,
		RateLimitConfig:     s.RateLimit,
		SecurityHeaders:     s.SecurityHeaders,
		Validation:          s.Validation,
	})
}

// RequireRoles returns middleware that admits only sessions holding one of
// roles. Use it to protect the host application's own pages:
//
//	r.With(sec.RequireRoles(domain.RoleAdmin, domain.RoleEmployee)).Get("/user/manage_products", h)
func (i *IDM) RequireRoles(roles ...domain.Role) func(http.Handler) http.Handler {
	realIP := middleware.RealIP(i.config.Settings.TrustedProxies)
	session := middleware.Session(i.sessions, i.cookies, i.config.Logger)
	authorize := middleware.Authorize(i.gate, domain.Roles(roles...), i.config.Logger)
	return func(next http.Handler) http.Handler {
		return realIP(session(authorize(next)))
	}
}

// GetSession returns the session attached by RequireRoles.
func GetSession(r *http.Request) (*domain.Session, bool) {
	return middleware.GetSession(r.Context())
}

// emptyTrail serves the audit listing when the sink cannot be read back.
type emptyTrail struct{}

func (emptyTrail) List(context.Context, int) ([]domain.AuditRecord, error) {
	return nil, nil
}
