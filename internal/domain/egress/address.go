// Package egress implements the pure, unit-testable predicates behind the
// Egress Proxy: URL scheme/blocked-address checks and the
// allowlist host-matching rules. All I/O (capsule lookup, rate limiting,
// the actual forwarded request) lives in internal/service/egressproxy.
package egress

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ParseAndValidate parses raw as an absolute http(s) URL and rejects it if
// the host is a literal IP in a blocked range (loopback, link-local,
// RFC1918 private, IPv6 loopback/unique-local). Hostnames are not resolved
// here — DNS rebinding defense is out of scope for this check and left to
// the forwarding transport.
func ParseAndValidate(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if u.Hostname() == "" {
		return nil, fmt.Errorf("missing host")
	}

	if ip := net.ParseIP(u.Hostname()); ip != nil && isBlockedIP(ip) {
		return nil, fmt.Errorf("blocked address %q", u.Hostname())
	}

	return u, nil
}

func isBlockedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		for _, cidr := range privateCIDRsV4 {
			if cidr.Contains(ip4) {
				return true
			}
		}

		return false
	}

	// IPv6 unique local addresses, fc00::/7.
	return ip[0]&0xfe == 0xfc
}

var privateCIDRsV4 = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))

	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}

		nets = append(nets, n)
	}

	return nets
}

func defaultPortFor(scheme string) string {
	if scheme == "https" {
		return "443"
	}

	return "80"
}

// HostAllowed reports whether host[:port] is covered by the effective
// allowlist:
//   - an exact allowlist entry matches a request at its scheme's default
//     port ("api.github.com" matches https://api.github.com/... but not
//     https://api.github.com:8443/...)
//   - a "*.domain" entry matches any single subdomain label of domain at
//     the default port
//   - an explicit "host:port" entry is required to match a non-default port
func HostAllowed(allowlist []string, scheme, host, port string) bool {
	if port == "" {
		port = defaultPortFor(scheme)
	}

	isDefaultPort := port == defaultPortFor(scheme)

	for _, entry := range allowlist {
		entry = strings.TrimSpace(entry)

		if entryHost, entryPort, ok := strings.Cut(entry, ":"); ok {
			if _, err := strconv.Atoi(entryPort); err == nil {
				if strings.EqualFold(entryHost, host) && entryPort == port {
					return true
				}

				continue
			}
		}

		if !isDefaultPort {
			continue
		}

		if strings.HasPrefix(entry, "*.") {
			suffix := entry[1:] // keep the leading dot
			if strings.HasSuffix(host, suffix) {
				label := strings.TrimSuffix(host, suffix)
				if label != "" && !strings.Contains(label, ".") {
					return true
				}
			}

			continue
		}

		if strings.EqualFold(entry, host) {
			return true
		}
	}

	return false
}

// IntersectAllowlists returns the hosts present in both the capsule
// manifest's requested net capabilities and the environment's globally
// configured allowlist.
func IntersectAllowlists(manifestNet, envAllowlist []string) []string {
	envSet := make(map[string]bool, len(envAllowlist))
	for _, h := range envAllowlist {
		envSet[strings.ToLower(strings.TrimSpace(h))] = true
	}

	var out []string

	for _, h := range manifestNet {
		if envSet[strings.ToLower(strings.TrimSpace(h))] {
			out = append(out, h)
		}
	}

	return out
}
