package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Storage
	StoreDriver  string // "postgres" or "memory"
	StoreTimeout time.Duration

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Session
	SessionDriver      string // "redis" or "memory"
	SessionSecret      string
	SessionIssuer      string
	SessionTTL         time.Duration
	SessionCookieName  string
	SessionFingerprint bool
	CookieSecure       bool
	RedisAddr          string
	RedisPassword      string
	RedisDB            int

	// Recovery
	RecoveryMarkerTTL       time.Duration
	RecoveryUniformResponse bool

	// Audit fan-out (optional)
	AMQPURL       string
	AuditExchange string

	CORSAllowedOrigins []string

	// TrustedProxies are the peers whose X-Forwarded-For and X-Real-IP
	// headers are believed. Empty means the socket address is always used.
	TrustedProxies []netip.Prefix

	Lockout         LockoutConfig
	PasswordPolicy  PasswordPolicyConfig
	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig
	Validation      ValidationConfig
	Bootstrap       BootstrapConfig
}

// LockoutConfig controls brute-force lockout.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// PasswordPolicyConfig controls password strength and lifecycle rules.
type PasswordPolicyConfig struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
	MinAge           time.Duration
}

// RateLimitConfig controls per-IP rate limiting of the auth endpoints.
type RateLimitConfig struct {
	Enabled                   bool
	LoginRequestsPerMinute    int
	RecoveryRequestsPerMinute int
	Window                    time.Duration
}

// SecurityHeadersConfig controls the headers added to every API response.
// Empty values and a zero HSTSMaxAge leave the header out.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
	PermissionsPolicy  string
	CacheControl       string
	CrossOriginOpener  string
	CrossOriginPolicy  string
}

// ValidationConfig controls request validation.
type ValidationConfig struct {
	MaxRequestBodySize    int64
	StrictEmailValidation bool
	BlockDisposableEmail  bool
}

// BootstrapConfig seeds the first admin account when it does not exist.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
	Question1     string
	Answer1       string
	Question2     string
	Answer2       string
}

// Enabled reports whether an admin should be seeded.
func (b BootstrapConfig) Enabled() bool {
	return b.AdminEmail != "" && b.AdminPassword != ""
}

const minSessionSecretLen = 32

// Load loads configuration from environment variables and an optional
// config.yaml in the working directory or /etc/simplybeauty/.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/simplybeauty/")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		ServerAddr: v.GetString("SERVER_ADDR"),
		ServerPort: v.GetInt("SERVER_PORT"),

		StoreDriver:  strings.ToLower(v.GetString("STORE_DRIVER")),
		StoreTimeout: v.GetDuration("STORE_TIMEOUT"),

		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetInt("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),

		SessionDriver:      strings.ToLower(v.GetString("SESSION_DRIVER")),
		SessionSecret:      v.GetString("SESSION_SECRET"),
		SessionIssuer:      v.GetString("SESSION_ISSUER"),
		SessionTTL:         v.GetDuration("SESSION_TTL"),
		SessionCookieName:  v.GetString("SESSION_COOKIE_NAME"),
		SessionFingerprint: v.GetBool("SESSION_FINGERPRINT_ENABLED"),
		CookieSecure:       v.GetBool("COOKIE_SECURE"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),

		RecoveryMarkerTTL:       v.GetDuration("RECOVERY_MARKER_TTL"),
		RecoveryUniformResponse: v.GetBool("RECOVERY_UNIFORM_RESPONSE"),

		AMQPURL:       v.GetString("AMQP_URL"),
		AuditExchange: v.GetString("AUDIT_EXCHANGE"),

		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		Lockout: LockoutConfig{
			Threshold: v.GetInt("LOCKOUT_THRESHOLD"),
			Duration:  v.GetDuration("LOCKOUT_DURATION"),
		},
		PasswordPolicy: PasswordPolicyConfig{
			MinLength:        v.GetInt("PASSWORD_MIN_LENGTH"),
			RequireUppercase: v.GetBool("PASSWORD_REQUIRE_UPPERCASE"),
			RequireLowercase: v.GetBool("PASSWORD_REQUIRE_LOWERCASE"),
			RequireNumber:    v.GetBool("PASSWORD_REQUIRE_NUMBER"),
			RequireSpecial:   v.GetBool("PASSWORD_REQUIRE_SPECIAL"),
			MinAge:           v.GetDuration("PASSWORD_MIN_AGE"),
		},
		RateLimit: RateLimitConfig{
			Enabled:                   v.GetBool("RATE_LIMIT_ENABLED"),
			LoginRequestsPerMinute:    v.GetInt("RATE_LIMIT_LOGIN_PER_MINUTE"),
			RecoveryRequestsPerMinute: v.GetInt("RATE_LIMIT_RECOVERY_PER_MINUTE"),
			Window:                    v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            v.GetBool("SECURITY_HEADERS_ENABLED"),
			CSP:                v.GetString("SECURITY_HEADERS_CSP"),
			HSTSMaxAge:         v.GetInt("SECURITY_HEADERS_HSTS_MAX_AGE"),
			FrameOptions:       v.GetString("SECURITY_HEADERS_FRAME_OPTIONS"),
			ContentTypeOptions: v.GetString("SECURITY_HEADERS_CONTENT_TYPE_OPTIONS"),
			ReferrerPolicy:     v.GetString("SECURITY_HEADERS_REFERRER_POLICY"),
			PermissionsPolicy:  v.GetString("SECURITY_HEADERS_PERMISSIONS_POLICY"),
			CacheControl:       v.GetString("SECURITY_HEADERS_CACHE_CONTROL"),
			CrossOriginOpener:  v.GetString("SECURITY_HEADERS_COOP"),
			CrossOriginPolicy:  v.GetString("SECURITY_HEADERS_CORP"),
		},
		Validation: ValidationConfig{
			MaxRequestBodySize:    v.GetInt64("MAX_REQUEST_BODY_SIZE"),
			StrictEmailValidation: v.GetBool("STRICT_EMAIL_VALIDATION"),
			BlockDisposableEmail:  v.GetBool("BLOCK_DISPOSABLE_EMAIL"),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    v.GetString("BOOTSTRAP_ADMIN_EMAIL"),
			AdminPassword: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
			AdminName:     v.GetString("BOOTSTRAP_ADMIN_NAME"),
			Question1:     v.GetString("BOOTSTRAP_ADMIN_QUESTION1"),
			Answer1:       v.GetString("BOOTSTRAP_ADMIN_ANSWER1"),
			Question2:     v.GetString("BOOTSTRAP_ADMIN_QUESTION2"),
			Answer2:       v.GetString("BOOTSTRAP_ADMIN_ANSWER2"),
		},
	}

	proxies, err := parseTrustedProxies(splitList(v.GetString("TRUSTED_PROXIES")))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("SERVER_ADDR", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)

	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("STORE_TIMEOUT", 3*time.Second)

	// Database defaults (matches podman setup: make postgres-start)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 25432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "simplybeauty")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("SESSION_DRIVER", "redis")
	v.SetDefault("SESSION_ISSUER", "simplybeauty-ims")
	v.SetDefault("SESSION_TTL", 8*time.Hour)
	v.SetDefault("SESSION_COOKIE_NAME", "ims_session")
	v.SetDefault("SESSION_FINGERPRINT_ENABLED", false)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("RECOVERY_MARKER_TTL", 10*time.Minute)
	v.SetDefault("RECOVERY_UNIFORM_RESPONSE", false)

	v.SetDefault("AUDIT_EXCHANGE", "ims.audit")

	v.SetDefault("LOCKOUT_THRESHOLD", 5)
	v.SetDefault("LOCKOUT_DURATION", time.Minute)

	v.SetDefault("PASSWORD_MIN_LENGTH", 8)
	v.SetDefault("PASSWORD_REQUIRE_UPPERCASE", true)
	v.SetDefault("PASSWORD_REQUIRE_LOWERCASE", true)
	v.SetDefault("PASSWORD_REQUIRE_NUMBER", true)
	v.SetDefault("PASSWORD_REQUIRE_SPECIAL", true)
	v.SetDefault("PASSWORD_MIN_AGE", 24*time.Hour)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_LOGIN_PER_MINUTE", 20)
	v.SetDefault("RATE_LIMIT_RECOVERY_PER_MINUTE", 10)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)

	v.SetDefault("SECURITY_HEADERS_ENABLED", true)
	v.SetDefault("SECURITY_HEADERS_CSP", "default-src 'none'; frame-ancestors 'none'")
	v.SetDefault("SECURITY_HEADERS_HSTS_MAX_AGE", 31536000)
	v.SetDefault("SECURITY_HEADERS_FRAME_OPTIONS", "DENY")
	v.SetDefault("SECURITY_HEADERS_CONTENT_TYPE_OPTIONS", "nosniff")
	v.SetDefault("SECURITY_HEADERS_REFERRER_POLICY", "no-referrer")
	v.SetDefault("SECURITY_HEADERS_PERMISSIONS_POLICY", "geolocation=(), microphone=(), camera=()")
	v.SetDefault("SECURITY_HEADERS_CACHE_CONTROL", "no-store")
	v.SetDefault("SECURITY_HEADERS_COOP", "same-origin")
	v.SetDefault("SECURITY_HEADERS_CORP", "same-origin")

	v.SetDefault("MAX_REQUEST_BODY_SIZE", 1<<20)
	v.SetDefault("STRICT_EMAIL_VALIDATION", false)
	v.SetDefault("BLOCK_DISPOSABLE_EMAIL", false)

	v.SetDefault("BOOTSTRAP_ADMIN_NAME", "Administrator")
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if len(c.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	}
	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.StoreDriver)
	}
	switch c.SessionDriver {
	case "redis", "memory":
	default:
		return fmt.Errorf("SESSION_DRIVER must be redis or memory, got %q", c.SessionDriver)
	}
	if c.Lockout.Threshold < 1 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be positive")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	return nil
}

// HasAMQP returns true if audit records should also be published to RabbitMQ.
func (c *Config) HasAMQP() bool {
	return c.AMQPURL != ""
}

// DSN builds the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// parseTrustedProxies accepts CIDR prefixes and bare addresses.
func parseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, e := range entries {
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: invalid entry %q", e)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
