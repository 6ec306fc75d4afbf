package auth

import (
	"regexp"
	"strings"

	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// Handles are 3-30 ASCII letters, digits, underscores or hyphens and start
// with a letter or digit.
var handleRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{2,29}$`)

// ValidateHandle checks the format of a login handle.
func ValidateHandle(handle string) error {
	if !handleRegex.MatchString(handle) {
		return domain.ErrInvalidHandle
	}
	return nil
}

// IsEmail reports whether a login identifier should be treated as an email.
// Handles never contain '@', so the namespaces are disjoint.
func IsEmail(identifier string) bool {
	return strings.Contains(identifier, "@")
}

// NormalizeIdentity prepares a login identifier for lookup: emails are
// lower-cased, handles are only trimmed.
func NormalizeIdentity(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if IsEmail(identifier) {
		return NormalizeEmail(identifier)
	}
	return identifier
}
