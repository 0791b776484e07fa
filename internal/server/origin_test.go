package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func originRequest(host string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "http://"+host+"/chatsocket/lobby", nil)
	req.Host = host
	return req
}

// TestSameOriginPolicy verifies host matching for the default policy.
func TestSameOriginPolicy(t *testing.T) {
	req := originRequest("example.com")

	tests := []struct {
		origin string
		want   bool
	}{
		{"http://example.com", true},
		{"https://example.com", true},
		{"http://EXAMPLE.com", true},
		{"http://other.example.net", false},
		{"http://example.com:9999", false},
		{"not a url://", false},
	}

	for _, tt := range tests {
		if got := SameOriginPolicy(req, tt.origin); got != tt.want {
			t.Errorf("SameOriginPolicy(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

// TestAllowListPolicy verifies normalization, matching, and the wildcard.
func TestAllowListPolicy(t *testing.T) {
	req := originRequest("example.com")

	policy := AllowListPolicy([]string{" http://localhost:8888 ", "HTTPS://Chat.Example.com", "bogus"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:8888", true},
		{"https://chat.example.com", true},
		{"http://chat.example.com", false},
		{"http://evil.example.net", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := policy(req, tt.origin); got != tt.want {
			t.Errorf("policy(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

// TestAllowListPolicyWildcard verifies that "*" admits any origin.
func TestAllowListPolicyWildcard(t *testing.T) {
	req := originRequest("example.com")
	policy := AllowListPolicy([]string{"*"})

	for _, origin := range []string{"http://anywhere.test", "https://evil.example.net"} {
		if !policy(req, origin) {
			t.Errorf("wildcard policy rejected %q", origin)
		}
	}
}
