package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func upgradeRequest(t *testing.T, mutate func(*http.Request)) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://example.com/chatsocket/lobby?username=alice", nil)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Sec-Websocket-Version", "13")
	if mutate != nil {
		mutate(req)
	}
	return req
}

// TestValidateHandshake exercises the admit/reject decision table for
// upgrade requests.
func TestValidateHandshake(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*http.Request)
		wantStatus int
		wantReason string
	}{
		{
			name:   "valid request without origin",
			mutate: nil,
		},
		{
			name: "upgrade header case insensitive",
			mutate: func(r *http.Request) {
				r.Header.Set("Upgrade", "WebSocket")
			},
		},
		{
			name: "missing upgrade header",
			mutate: func(r *http.Request) {
				r.Header.Del("Upgrade")
			},
			wantStatus: http.StatusBadRequest,
			wantReason: "Upgrade header must be WebSocket",
		},
		{
			name: "wrong upgrade header",
			mutate: func(r *http.Request) {
				r.Header.Set("Upgrade", "h2c")
			},
			wantStatus: http.StatusBadRequest,
			wantReason: "Upgrade header must be WebSocket",
		},
		{
			name: "connection header without upgrade token",
			mutate: func(r *http.Request) {
				r.Header.Set("Connection", "keep-alive")
			},
			wantStatus: http.StatusBadRequest,
			wantReason: "Connection header must include Upgrade",
		},
		{
			name: "connection header with multiple tokens",
			mutate: func(r *http.Request) {
				r.Header.Set("Connection", "keep-alive, Upgrade")
			},
		},
		{
			name: "same origin allowed",
			mutate: func(r *http.Request) {
				r.Header.Set("Origin", "http://example.com")
			},
		},
		{
			name: "cross origin rejected",
			mutate: func(r *http.Request) {
				r.Header.Set("Origin", "http://evil.example.net")
			},
			wantStatus: http.StatusForbidden,
			wantReason: "Cross origin not allowed",
		},
		{
			name: "legacy sec-websocket-origin honored",
			mutate: func(r *http.Request) {
				r.Header.Set("Sec-Websocket-Origin", "http://evil.example.net")
			},
			wantStatus: http.StatusForbidden,
			wantReason: "Cross origin not allowed",
		},
		{
			name: "legacy sec-websocket-origin same host allowed",
			mutate: func(r *http.Request) {
				r.Header.Set("Sec-Websocket-Origin", "http://example.com")
			},
		},
		{
			name: "origin preferred over legacy header",
			mutate: func(r *http.Request) {
				r.Header.Set("Origin", "http://example.com")
				r.Header.Set("Sec-Websocket-Origin", "http://evil.example.net")
			},
		},
		{
			name: "version 7 accepted",
			mutate: func(r *http.Request) {
				r.Header.Set("Sec-Websocket-Version", "7")
			},
		},
		{
			name: "version 8 accepted",
			mutate: func(r *http.Request) {
				r.Header.Set("Sec-Websocket-Version", "8")
			},
		},
		{
			name: "unsupported version",
			mutate: func(r *http.Request) {
				r.Header.Set("Sec-Websocket-Version", "6")
			},
			wantStatus: http.StatusUpgradeRequired,
		},
		{
			name: "missing version",
			mutate: func(r *http.Request) {
				r.Header.Del("Sec-Websocket-Version")
			},
			wantStatus: http.StatusUpgradeRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := upgradeRequest(t, tt.mutate)
			err := ValidateHandshake(req, SameOriginPolicy)

			if tt.wantStatus == 0 {
				if err != nil {
					t.Fatalf("ValidateHandshake() = %v, want accept", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("ValidateHandshake() accepted, want status %d", tt.wantStatus)
			}
			if err.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", err.Status, tt.wantStatus)
			}
			if tt.wantReason != "" && err.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", err.Reason, tt.wantReason)
			}
		})
	}
}

// TestHandshakeErrorWriteResponse verifies the written status and, for
// version negotiation failures, the advertised supported-version list.
func TestHandshakeErrorWriteResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	hsErr := &HandshakeError{Status: http.StatusUpgradeRequired, Reason: "Unsupported WebSocket version"}
	hsErr.WriteResponse(rr)

	if rr.Code != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUpgradeRequired)
	}
	if got := rr.Header().Get("Sec-WebSocket-Version"); got != "7, 8, 13" {
		t.Errorf("Sec-WebSocket-Version = %q, want %q", got, "7, 8, 13")
	}

	rr = httptest.NewRecorder()
	hsErr = &HandshakeError{Status: http.StatusBadRequest, Reason: "Upgrade header must be WebSocket"}
	hsErr.WriteResponse(rr)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if got := rr.Header().Get("Sec-WebSocket-Version"); got != "" {
		t.Errorf("unexpected Sec-WebSocket-Version header %q on 400 response", got)
	}
}
