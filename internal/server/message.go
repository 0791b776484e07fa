// Package server defines the message payload types exchanged between chat
// participants and utility helpers reused across session and broadcast logic.
package server

import "strings"

// Message is a single chat message accepted into a room. It is immutable once
// constructed and lives in the room's history buffer until evicted. Rendered
// holds the presentation blob produced by the Renderer collaborator; the core
// stores and replays it without interpreting it.
type Message struct {
	ID       string `json:"id"`
	Body     string `json:"body"`
	Username string `json:"username"`
	Rendered string `json:"rendered"`
}

// InboundFrame is the payload clients send over the socket. Body is required;
// unknown fields are ignored.
type InboundFrame struct {
	Body *string `json:"body"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
