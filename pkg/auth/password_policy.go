package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tsuruyu/SimplyBeauty-IMS/internal/config"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// PasswordPolicy defines password complexity requirements.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// ViolationKind identifies which rule a password broke.
type ViolationKind string

const (
	ViolationTooShort         ViolationKind = "too_short"
	ViolationMissingUppercase ViolationKind = "missing_uppercase"
	ViolationMissingLowercase ViolationKind = "missing_lowercase"
	ViolationMissingNumber    ViolationKind = "missing_number"
	ViolationMissingSpecial   ViolationKind = "missing_special"
)

// Violation is one broken rule with a message suitable for the user.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
}

// Evaluation is the result of checking a password against the policy.
// Valid is false exactly when Violations is non-empty.
type Evaluation struct {
	Valid      bool
	Violations []Violation
}

// Messages returns the violation messages in rule order.
func (e Evaluation) Messages() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.Message
	}
	return out
}

// Err returns a *domain.PolicyError for an invalid evaluation, or nil.
func (e Evaluation) Err() error {
	if e.Valid {
		return nil
	}
	return &domain.PolicyError{Violations: e.Messages()}
}

// NewPasswordPolicy creates a PasswordPolicy from config.
func NewPasswordPolicy(cfg config.PasswordPolicyConfig) *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        cfg.MinLength,
		RequireUppercase: cfg.RequireUppercase,
		RequireLowercase: cfg.RequireLowercase,
		RequireNumber:    cfg.RequireNumber,
		RequireSpecial:   cfg.RequireSpecial,
	}
}

// Evaluate checks password against every rule and reports all violations.
// It has no side effects.
func (p *PasswordPolicy) Evaluate(password string) Evaluation {
	var violations []Violation

	if p.MinLength > 0 && utf8.RuneCountInString(password) < p.MinLength {
		violations = append(violations, Violation{
			Kind:    ViolationTooShort,
			Message: fmt.Sprintf("password must be at least %d characters long", p.MinLength),
		})
	}
	if p.RequireUppercase && !containsUppercase(password) {
		violations = append(violations, Violation{
			Kind:    ViolationMissingUppercase,
			Message: "password must contain at least one uppercase letter",
		})
	}
	if p.RequireLowercase && !containsLowercase(password) {
		violations = append(violations, Violation{
			Kind:    ViolationMissingLowercase,
			Message: "password must contain at least one lowercase letter",
		})
	}
	if p.RequireNumber && !containsNumber(password) {
		violations = append(violations, Violation{
			Kind:    ViolationMissingNumber,
			Message: "password must contain at least one number",
		})
	}
	if p.RequireSpecial && !containsSpecial(password) {
		violations = append(violations, Violation{
			Kind:    ViolationMissingSpecial,
			Message: "password must contain at least one special character",
		})
	}

	return Evaluation{Valid: len(violations) == 0, Violations: violations}
}

// ValidatePassword checks if a password meets the policy requirements.
// The returned error is a *domain.PolicyError.
func (p *PasswordPolicy) ValidatePassword(password string) error {
	return p.Evaluate(password).Err()
}

// GetRequirements returns a human-readable description of the policy.
func (p *PasswordPolicy) GetRequirements() string {
	if !p.HasRequirements() {
		return "No password requirements"
	}

	var requirements []string

	if p.MinLength > 0 {
		requirements = append(requirements, fmt.Sprintf("at least %d characters", p.MinLength))
	}
	if p.RequireUppercase {
		requirements = append(requirements, "one uppercase letter")
	}
	if p.RequireLowercase {
		requirements = append(requirements, "one lowercase letter")
	}
	if p.RequireNumber {
		requirements = append(requirements, "one number")
	}
	if p.RequireSpecial {
		requirements = append(requirements, "one special character")
	}

	return "Password must contain " + strings.Join(requirements, ", ")
}

// HasRequirements returns true if the policy has any requirements.
func (p *PasswordPolicy) HasRequirements() bool {
	return p.MinLength > 0 || p.RequireUppercase || p.RequireLowercase || p.RequireNumber || p.RequireSpecial
}

func containsUppercase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func containsLowercase(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

func containsNumber(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// containsSpecial checks if string contains at least one special character.
func containsSpecial(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
