package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Allow Decision = iota
	Deny
	RequireLogin
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case RequireLogin:
		return "require_login"
	}
	return "unknown"
}

// Gate decides whether a session may reach a role-restricted resource.
// Every denial of an authenticated session is audited.
type Gate struct {
	auditor Auditor
	logger  *slog.Logger
}

// NewGate creates an authorization gate.
func NewGate(auditor Auditor, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{auditor: auditor, logger: logger}
}

// Authorize checks sess against the roles allowed on resource. A nil or
// anonymous session yields RequireLogin. A session whose role is not one of
// admin, vendor or employee is always denied.
func (g *Gate) Authorize(ctx context.Context, sess *domain.Session, allowed domain.RoleSet, resource, clientAddr string) (Decision, error) {
	if !sess.Authenticated() {
		return RequireLogin, nil
	}
	if allowed.Contains(sess.Role) {
		return Allow, nil
	}

	desc := fmt.Sprintf("%s denied access to %s", sess.Role, resource)
	if !sess.Role.Valid() {
		desc = fmt.Sprintf("session with unrecognized role denied access to %s", resource)
	}

	label := sess.Identity
	if label == "" {
		label = sess.UserID.String()
	}
	target := resource
	err := g.auditor.Record(ctx, domain.AuditRecord{
		ActorID:        sess.UserID,
		ActorLabel:     label,
		EventKind:      domain.EventAccessDenied,
		TargetEntityID: &target,
		Description:    desc,
		Outcome:        domain.OutcomeFail,
		ClientAddress:  clientAddr,
	})
	if err != nil {
		g.logger.Error("audit failed on access denial", "resource", resource, "role", sess.Role.String(), "error", err)
	}

	return Deny, &domain.AccessDeniedError{Role: sess.Role, Resource: resource}
}
