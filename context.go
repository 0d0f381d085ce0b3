package goToken

import (
	"net"
	"net/http"

	"github.com/MrEthical07/goToken/internal"
)

// DeriveClientContext returns the client context for a user agent and remote
// address: the lowercase hex SHA-256 of userAgent + "-" + remoteAddress.
// Equal inputs always yield equal contexts.
func DeriveClientContext(userAgent, remoteAddress string) string {
	return internal.DeriveClientContext(userAgent, remoteAddress)
}

// ClientContextFromRequest derives the client context from the request's
// User-Agent header and the host part of RemoteAddr.
//
// Proxies are not unwrapped; hosts behind a load balancer should rewrite
// RemoteAddr before this runs.
func ClientContextFromRequest(r *http.Request) string {
	if r == nil {
		return DeriveClientContext("", "")
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return DeriveClientContext(r.UserAgent(), host)
}

// NewSessionContext returns a random opaque client context for hosts that
// hand each client a server-generated session id (in a cookie, say) instead
// of deriving one from request headers.
func NewSessionContext() (string, error) {
	return internal.NewSessionContext()
}
