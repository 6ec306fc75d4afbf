package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/config"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

const maxNameLength = 100

// ProvisioningConfig controls account creation checks.
type ProvisioningConfig struct {
	StrictEmailValidation bool
	BlockDisposableEmail  bool
}

// NewAccount is the input for creating an account.
type NewAccount struct {
	Email     string
	Handle    string
	FullName  string
	BrandName string
	Role      domain.Role
	Password  string
	Questions [2]SecurityAnswer
}

// ProvisioningService creates accounts. Only admins may create accounts.
type ProvisioningService struct {
	store   *CredentialStore
	auditor Auditor
	logger  *slog.Logger
	cfg     ProvisioningConfig
}

// NewProvisioningService creates a provisioning service.
func NewProvisioningService(store *CredentialStore, auditor Auditor, logger *slog.Logger, cfg ProvisioningConfig) *ProvisioningService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProvisioningService{store: store, auditor: auditor, logger: logger, cfg: cfg}
}

// CreateAccount validates in and creates the account on behalf of actor.
func (p *ProvisioningService) CreateAccount(ctx context.Context, actor *domain.Session, in NewAccount, clientAddr string) (*domain.Credential, error) {
	if !actor.Authenticated() || actor.Role != domain.RoleAdmin {
		role := domain.RoleUnknown
		if actor != nil {
			role = actor.Role
		}
		return nil, &domain.AccessDeniedError{Role: role, Resource: "account provisioning"}
	}

	c, err := p.build(in)
	if err != nil {
		p.auditRejected(ctx, actor, in, err, clientAddr)
		return nil, err
	}

	if err := p.store.Create(ctx, c); err != nil {
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			p.auditRejected(ctx, actor, in, err, clientAddr)
		}
		return nil, err
	}

	target := c.ID.String()
	role := c.Role.String()
	err = p.auditor.Record(ctx, domain.AuditRecord{
		ActorID:        actor.UserID,
		ActorLabel:     actor.Identity,
		EventKind:      domain.EventAccountCreate,
		TargetEntityID: &target,
		NewValue:       &role,
		Description:    fmt.Sprintf("created %s account %s", c.Role, c.Label()),
		Outcome:        domain.OutcomeSuccess,
		ClientAddress:  clientAddr,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Bootstrap creates the first admin from configuration when no account with
// that email exists. It reports whether an account was created.
func (p *ProvisioningService) Bootstrap(ctx context.Context, cfg config.BootstrapConfig) (bool, error) {
	if !cfg.Enabled() {
		return false, nil
	}

	_, err := p.store.Lookup(ctx, cfg.AdminEmail)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrUnknownIdentity) {
		return false, err
	}

	name := cfg.AdminName
	if name == "" {
		name = "Administrator"
	}
	c, err := p.build(NewAccount{
		Email:    cfg.AdminEmail,
		FullName: name,
		Role:     domain.RoleAdmin,
		Password: cfg.AdminPassword,
		Questions: [2]SecurityAnswer{
			{Question: cfg.Question1, Answer: cfg.Answer1},
			{Question: cfg.Question2, Answer: cfg.Answer2},
		},
	})
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	if err := p.store.Create(ctx, c); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return false, nil
		}
		return false, err
	}

	target := c.ID.String()
	err = p.auditor.Record(ctx, domain.AuditRecord{
		ActorID:        &c.ID,
		ActorLabel:     c.Label(),
		EventKind:      domain.EventAccountCreate,
		TargetEntityID: &target,
		Description:    "bootstrap admin account created from configuration",
		Outcome:        domain.OutcomeSuccess,
		ClientAddress:  "local",
	})
	if err != nil {
		return true, err
	}
	p.logger.Info("bootstrap admin created", "email", c.Email)
	return true, nil
}

// ListAccounts returns account profiles for the admin user list.
func (p *ProvisioningService) ListAccounts(ctx context.Context, limit int) ([]domain.Profile, error) {
	creds, err := p.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Profile, len(creds))
	for i, c := range creds {
		out[i] = c.Profile()
	}
	return out, nil
}

func (p *ProvisioningService) build(in NewAccount) (*domain.Credential, error) {
	if err := ValidateEmail(in.Email, p.cfg.StrictEmailValidation, p.cfg.BlockDisposableEmail); err != nil {
		return nil, err
	}

	var handle *string
	if h := strings.TrimSpace(in.Handle); h != "" {
		if err := ValidateHandle(h); err != nil {
			return nil, err
		}
		handle = &h
	}

	fullName := SanitizeName(in.FullName)
	if err := ValidateStringLength("full name", fullName, 1, maxNameLength); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidName, err)
	}

	if !in.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	var brand *string
	if b := SanitizeName(in.BrandName); b != "" {
		if err := ValidateStringLength("brand name", b, 0, maxNameLength); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidName, err)
		}
		brand = &b
	}
	if in.Role == domain.RoleVendor && brand == nil {
		return nil, domain.ErrBrandNameMissing
	}

	hash, err := p.store.HashSecret(in.Password)
	if err != nil {
		return nil, err
	}
	questions, err := p.store.HashAnswers(in.Questions)
	if err != nil {
		return nil, err
	}

	now := p.store.Now()
	return &domain.Credential{
		ID:                uuid.New(),
		Email:             NormalizeEmail(in.Email),
		Handle:            handle,
		FullName:          fullName,
		BrandName:         brand,
		Role:              in.Role,
		SecretHash:        hash,
		SecretUpdatedAt:   now,
		SecurityQuestions: questions,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (p *ProvisioningService) auditRejected(ctx context.Context, actor *domain.Session, in NewAccount, reason error, clientAddr string) {
	err := p.auditor.Record(ctx, domain.AuditRecord{
		ActorID:       actor.UserID,
		ActorLabel:    actor.Identity,
		EventKind:     domain.EventValidationFail,
		Description:   fmt.Sprintf("account creation for %q rejected: %v", NormalizeEmail(in.Email), reason),
		Outcome:       domain.OutcomeFail,
		ClientAddress: clientAddr,
	})
	if err != nil {
		p.logger.Error("audit failed on rejected account creation", "error", err)
	}
}
