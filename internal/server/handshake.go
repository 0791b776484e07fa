// Package server validates WebSocket upgrade requests before any room or
// session state is touched.
package server

import (
	"fmt"
	"net/http"
	"strings"
)

// supportedVersions lists the WebSocket protocol versions the relay accepts,
// advertised in the 426 response when negotiation fails.
var supportedVersions = []string{"7", "8", "13"}

// HandshakeError describes a rejected upgrade attempt. Rejection is terminal
// for the attempt; the client may retry with a corrected request.
type HandshakeError struct {
	Status int
	Reason string
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake rejected: %d %s", e.Status, e.Reason)
}

// WriteResponse writes the rejection to the client. Version negotiation
// failures additionally advertise the supported protocol versions.
func (e *HandshakeError) WriteResponse(w http.ResponseWriter) {
	if e.Status == http.StatusUpgradeRequired {
		w.Header().Set("Sec-WebSocket-Version", strings.Join(supportedVersions, ", "))
	}
	http.Error(w, e.Reason, e.Status)
}

// ValidateHandshake inspects an upgrade request's headers and decides whether
// the connection may proceed to the protocol upgrade. It runs exactly once per
// connection attempt, before a session is created.
//
// An absent origin is treated as a non-browser client and allowed; a present
// origin must satisfy the supplied policy. The legacy Sec-Websocket-Origin
// header is honored when Origin is missing (pre-version-13 clients).
func ValidateHandshake(r *http.Request, policy OriginPolicy) *HandshakeError {
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return &HandshakeError{Status: http.StatusBadRequest, Reason: "Upgrade header must be WebSocket"}
	}

	if !headerContainsToken(r.Header.Get("Connection"), "upgrade") {
		return &HandshakeError{Status: http.StatusBadRequest, Reason: "Connection header must include Upgrade"}
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Sec-Websocket-Origin")
	}
	if origin != "" && !policy(r, origin) {
		return &HandshakeError{Status: http.StatusForbidden, Reason: "Cross origin not allowed"}
	}

	if !supportedVersion(r.Header.Get("Sec-Websocket-Version")) {
		return &HandshakeError{Status: http.StatusUpgradeRequired, Reason: "Unsupported WebSocket version"}
	}

	return nil
}

// headerContainsToken reports whether a comma-separated header value contains
// the given token after trimming and lowercasing each element.
func headerContainsToken(value, token string) bool {
	for _, part := range strings.Split(value, ",") {
		if strings.ToLower(strings.TrimSpace(part)) == token {
			return true
		}
	}
	return false
}

func supportedVersion(version string) bool {
	for _, v := range supportedVersions {
		if version == v {
			return true
		}
	}
	return false
}
