// Package server wires HTTP handlers into a ServeMux for the roomcast
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: the join flow, the WebSocket endpoint, and the health check.
func SetupRoutes(cs *ChatServer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/", cs.JoinHandler)
	mux.HandleFunc("/chatsocket/", cs.SocketHandler)
	mux.HandleFunc("/healthz", cs.HealthHandler)
	return mux
}
