// Package server implements the core room registry, broadcast engine, and
// WebSocket session handling for the roomcast chat relay.
//
// The implementation is organized into specialized files for configuration,
// handshake validation, the room registry, the bounded history cache, the
// broadcast engine, sessions, rendering, routing, and HTTP handlers to keep
// the codebase maintainable and testable as the project grows.
package server
