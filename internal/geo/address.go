// Package geo resolves who is calling and roughly where they are.
package geo

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// DefaultAddress is returned when nothing better is known about the caller.
const DefaultAddress = "127.0.0.1"

// proxyHeaders is checked in order; the first public address wins.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Real-IP",
	"X-Forwarded-For",
	"X-Client-IP",
	"Forwarded",
}

// ResolveAddress returns the caller's public address from proxy headers,
// falling back to the direct connection address and then to DefaultAddress.
func ResolveAddress(h http.Header, remoteAddr string) string {
	for _, name := range proxyHeaders {
		value := h.Get(name)
		if value == "" {
			continue
		}
		for _, candidate := range headerCandidates(name, value) {
			addr, ok := parseCandidate(candidate)
			if ok && IsPublic(addr) {
				return addr.String()
			}
		}
	}
	return directAddress(remoteAddr)
}

// IsPublic reports whether addr is routable, i.e. not loopback, private or unspecified.
func IsPublic(addr netip.Addr) bool {
	return addr.IsValid() && !addr.IsLoopback() && !addr.IsPrivate() && !addr.IsUnspecified()
}

func headerCandidates(name, value string) []string {
	parts := strings.Split(value, ",")
	if !strings.EqualFold(name, "Forwarded") {
		return parts
	}

	// RFC 7239: for=192.0.2.60;proto=http, for="[2001:db8::17]:4711"
	out := make([]string, 0, len(parts))
	for _, element := range parts {
		for _, pair := range strings.Split(element, ";") {
			key, val, found := strings.Cut(strings.TrimSpace(pair), "=")
			if found && strings.EqualFold(key, "for") {
				out = append(out, val)
			}
		}
	}
	return out
}

func parseCandidate(raw string) (netip.Addr, bool) {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"'`))
	if s == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func directAddress(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return DefaultAddress
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil && host != "" {
		return host
	}
	return remoteAddr
}
