// Package server normalizes and validates HTTP origins for WebSocket requests
// to enforce configured access control.
package server

import (
	"log"
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy decides whether a browser-supplied origin may open a socket.
// The origin has already been extracted from the request headers, preferring
// Origin over the legacy Sec-Websocket-Origin.
type OriginPolicy func(r *http.Request, origin string) bool

// SameOriginPolicy allows only origins whose host matches the request host.
// This is the default policy when no explicit allow-list is configured.
func SameOriginPolicy(r *http.Request, origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Host, r.Host)
}

// AllowListPolicy builds a policy from a configured origin list. Entries are
// normalized to scheme://host form; a "*" entry allows any origin and invalid
// entries are logged and ignored.
func AllowListPolicy(origins []string) OriginPolicy {
	normalized, allowAll := normalizeOrigins(origins)

	allowed := make(map[string]struct{}, len(normalized))
	for _, origin := range normalized {
		allowed[origin] = struct{}{}
	}

	return func(_ *http.Request, origin string) bool {
		if allowAll {
			return true
		}
		normalizedOrigin, ok := normalizeOrigin(origin)
		if !ok {
			return false
		}
		_, exists := allowed[normalizedOrigin]
		return exists
	}
}

func normalizeOrigins(origins []string) ([]string, bool) {
	if len(origins) == 0 {
		return nil, false
	}

	normalized := make([]string, 0, len(origins))
	allowAll := false

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			allowAll = true
			continue
		}

		normalizedOrigin, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Printf("Ignoring invalid origin in configuration: %q", origin)
			continue
		}

		normalized = append(normalized, normalizedOrigin)
	}

	return normalized, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	normalized := strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host)
	return normalized, true
}
