package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the client IP used for rate limiting and request logs.
// The socket peer is authoritative unless it is a loopback or private
// address, which is how a local reverse proxy appears; then the left-most
// valid X-Forwarded-For entry wins.
func RealClientIP(r *http.Request) string {
	peer := peerIP(r.RemoteAddr)
	ip := net.ParseIP(peer)
	if ip == nil || !(ip.IsLoopback() || ip.IsPrivate()) {
		return peer
	}
	if fwd := forwardedFor(r.Header.Get("X-Forwarded-For")); fwd != "" {
		return fwd
	}
	return peer
}

func peerIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return strings.TrimSpace(remoteAddr)
	}
	return strings.TrimSpace(host)
}

func forwardedFor(header string) string {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if net.ParseIP(part) != nil {
			return part
		}
	}
	return ""
}
