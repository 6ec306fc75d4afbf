package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
)

// SessionFingerprint identifies the client a session was bound to.
type SessionFingerprint struct {
	IPAddress string
	UserAgent string
	Hash      string
}

// GenerateFingerprint creates a fingerprint from request metadata.
func GenerateFingerprint(r *http.Request) *SessionFingerprint {
	ip := ClientIP(r)
	ua := r.UserAgent()

	return &SessionFingerprint{
		IPAddress: ip,
		UserAgent: ua,
		Hash:      hashFingerprint(ip, ua),
	}
}

// Matches reports whether r comes from the fingerprinted client.
func (f *SessionFingerprint) Matches(r *http.Request) bool {
	return f.Hash == GenerateFingerprint(r).Hash
}

// DetectChange describes which component of the fingerprint changed.
func (f *SessionFingerprint) DetectChange(r *http.Request) (bool, string) {
	current := GenerateFingerprint(r)

	if f.IPAddress != current.IPAddress {
		return true, fmt.Sprintf("IP address changed from %s to %s", f.IPAddress, current.IPAddress)
	}
	if f.UserAgent != current.UserAgent {
		return true, fmt.Sprintf("User-Agent changed from %s to %s", f.UserAgent, current.UserAgent)
	}
	return false, ""
}

func hashFingerprint(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])
}

// ClientIP returns the client address recorded in audit entries and used
// for fingerprints: the host part of r.RemoteAddr. Forwarding headers are
// only honored upstream, by the proxy middleware, for trusted peers.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
