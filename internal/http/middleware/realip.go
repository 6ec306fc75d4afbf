package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealIP rewrites r.RemoteAddr to the client address reported by a trusted
// reverse proxy. Forwarding headers are ignored unless the direct peer is
// inside one of trusted, so a client cannot choose its own address for rate
// limiting or audit records. With no trusted proxies it is a no-op.
//
// X-Forwarded-For is read right to left and the first hop that is not itself
// a trusted proxy wins. X-Real-IP is used when X-Forwarded-For is absent.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, port, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host, port = r.RemoteAddr, "0"
			}
			peer, err := netip.ParseAddr(host)
			if err == nil && isTrusted(trusted, peer) {
				if client, ok := forwardedClient(r, trusted); ok {
					r.RemoteAddr = net.JoinHostPort(client.String(), port)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(r *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		var last netip.Addr
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				// Anything left of a malformed hop is unverifiable.
				break
			}
			last = addr.Unmap()
			if !isTrusted(trusted, last) {
				return last, true
			}
		}
		if last.IsValid() {
			return last, true
		}
		return netip.Addr{}, false
	}

	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

func isTrusted(trusted []netip.Prefix, addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
