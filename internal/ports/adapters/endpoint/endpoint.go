// Package endpoint validates user-supplied API base URLs before any request
// carries credentials to them.
package endpoint

import (
	"fmt"
	"net/url"
	"strings"
)

// Policy describes what a provider's base URL may look like.
type Policy struct {
	// Setting names the option in error messages, e.g. OPENROUTER_BASE_URL.
	Setting string
	// HostsSetting names the allow-list option in error messages.
	HostsSetting string
	DefaultURL   string
	DefaultHosts []string
	// AllowLoopbackHTTP permits plain http to localhost for local servers.
	AllowLoopbackHTTP bool
}

// Normalize trims the URL, substitutes the default and drops trailing slashes.
func (p Policy) Normalize(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = p.DefaultURL
	}
	return strings.TrimRight(baseURL, "/")
}

// Validate rejects URLs that are relative, carry userinfo, query or fragment,
// use plain http, or point at a host outside allowedHosts (DefaultHosts when
// empty).
func (p Policy) Validate(baseURL string, allowedHosts []string) error {
	baseURL = p.Normalize(baseURL)

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", p.Setting, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid %s %q: absolute URL with host is required", p.Setting, baseURL)
	}
	if u.User != nil {
		return fmt.Errorf("invalid %s %q: userinfo is not allowed", p.Setting, baseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid %s %q: query and fragment are not allowed", p.Setting, baseURL)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("invalid %s %q: host is required", p.Setting, baseURL)
	}

	switch {
	case scheme == "https":
	case scheme == "http" && p.AllowLoopbackHTTP && isLoopback(host):
	default:
		return fmt.Errorf("invalid %s %q: https is required", p.Setting, baseURL)
	}

	if p.AllowLoopbackHTTP && isLoopback(host) {
		return nil
	}
	allowed := p.allowedHosts(allowedHosts)
	if _, ok := allowed[host]; !ok {
		return fmt.Errorf("invalid %s %q: host %q is not in %s", p.Setting, baseURL, host, p.HostsSetting)
	}
	return nil
}

func (p Policy) allowedHosts(configured []string) map[string]struct{} {
	out := normalizeHosts(configured)
	if len(out) == 0 {
		out = normalizeHosts(p.DefaultHosts)
	}
	return out
}

func normalizeHosts(hosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if v == "" {
			continue
		}
		if i := strings.Index(v, ":"); i >= 0 {
			v = v[:i]
		}
		out[v] = struct{}{}
	}
	return out
}

// SplitHosts parses a comma separated allow-list.
func SplitHosts(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isLoopback(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
