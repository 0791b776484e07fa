// Package server manages individual WebSocket sessions, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	sendBufferSize = 256
)

// ErrSessionBusy reports a delivery attempt against a session whose outbound
// buffer is full or whose transport is closing.
var ErrSessionBusy = errors.New("session send buffer full or closed")

// Session is the live binding between one connection, one room, and one
// claimed username. Room and username are immutable for the session's
// lifetime; the session exclusively owns its transport and unregisters
// itself from the room on teardown.
type Session struct {
	conn        *websocket.Conn
	send        chan []byte
	registry    *Registry
	broadcaster *Broadcaster
	roomID      string
	username    string
	addr        string

	maxMessageSize int64
	limiter        *rate.Limiter
	rateLimit      RateLimitConfig

	teardown sync.Once
	mu       sync.Mutex
	closed   bool
}

// NewSession binds a freshly upgraded connection to a room and username. The
// returned session is not yet visible to the room: callers register it with
// Registry.Join and then call Start.
func NewSession(conn *websocket.Conn, registry *Registry, broadcaster *Broadcaster, roomID, username, addr string, cfg *Config) *Session {
	sanitized := sanitizeConfig(*cfg)
	if conn != nil {
		conn.SetReadLimit(sanitized.MaxMessageSize)
	}

	return &Session{
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		registry:       registry,
		broadcaster:    broadcaster,
		roomID:         roomID,
		username:       username,
		addr:           addr,
		maxMessageSize: sanitized.MaxMessageSize,
		limiter:        rate.NewLimiter(sanitized.RateLimit.PerSecond, sanitized.RateLimit.Burst),
		rateLimit:      sanitized.RateLimit,
	}
}

// Room returns the room identifier the session is bound to.
func (s *Session) Room() string { return s.roomID }

// Username returns the display name claimed by the session.
func (s *Session) Username() string { return s.username }

// Start launches the session's read and write pumps. The registry tracks the
// goroutines so shutdown can wait for them.
func (s *Session) Start() {
	s.registry.wg.Add(2)
	go func() {
		defer s.registry.wg.Done()
		s.writePump()
	}()
	go func() {
		defer s.registry.wg.Done()
		s.readPump()
	}()
}

// Deliver enqueues an outbound payload without blocking. A full buffer or a
// closing transport yields ErrSessionBusy; the broadcaster logs it and moves
// on to the remaining targets.
func (s *Session) Deliver(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionBusy
	}
	select {
	case s.send <- payload:
		return nil
	default:
		return ErrSessionBusy
	}
}

// Close tears the session down: it leaves the room, stops both pumps, and
// closes the transport. Safe to call from any goroutine and more than once;
// only the first call has any effect, so concurrent local and remote close
// observations trigger Leave exactly once.
func (s *Session) Close() {
	s.teardown.Do(func() {
		s.registry.Leave(s)

		s.mu.Lock()
		s.closed = true
		close(s.send)
		s.mu.Unlock()

		if s.conn != nil {
			if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
				log.Printf("Error closing connection for %s: %v", s.addr, err)
			}
		}
	})
}

// setupReadConnection configures read deadlines and the pong handler.
func (s *Session) setupReadConnection() {
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", s.addr, err)
	}
	s.conn.SetPongHandler(func(string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", s.addr, err)
		}
		return nil
	})
}

// logReadError logs an appropriate message for a terminal read error.
func (s *Session) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Message from %s exceeded maximum size of %d bytes", s.addr, s.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Session %q disconnected from room %q: %v", s.username, s.roomID, err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		log.Printf("Connection closed for %s: %v", s.addr, err)
	default:
		log.Printf("WebSocket read error from %s: %v", s.addr, err)
	}
}

// allowInbound verifies the session has not exceeded its message rate.
func (s *Session) allowInbound() bool {
	if s.limiter != nil && !s.limiter.Allow() {
		log.Printf("Rate limit exceeded for %s (%v msg/s, burst %d); discarding message",
			s.addr, s.rateLimit.PerSecond, s.rateLimit.Burst)
		return false
	}
	return true
}

// readPump reads inbound frames until the transport closes or errs, feeding
// each accepted frame to the broadcast engine. Any exit path funnels through
// Close, driving the session to its terminal state.
func (s *Session) readPump() {
	defer s.Close()

	s.setupReadConnection()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.logReadError(err)
			return
		}

		if !s.allowInbound() {
			continue
		}

		s.broadcaster.HandleInbound(s, raw)
	}
}

// writePump drains the send channel onto the transport and keeps the
// connection alive with periodic pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Error setting write deadline for %s: %v", s.addr, err)
				return
			}
			if !ok {
				if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
					log.Printf("Error writing close message to %s: %v", s.addr, err)
				}
				return
			}
			if !s.writeFrame(payload) {
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Error setting write deadline for ping to %s: %v", s.addr, err)
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error writing ping message to %s: %v", s.addr, err)
				}
				return
			}
		}
	}
}

// writeFrame writes one payload plus any frames already queued behind it.
func (s *Session) writeFrame(payload []byte) bool {
	w, err := s.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		log.Printf("Error creating writer for %s: %v", s.addr, err)
		return false
	}

	if _, err := w.Write(payload); err != nil {
		log.Printf("Error writing message to %s: %v", s.addr, err)
		return false
	}

	queued := len(s.send)
	for i := 0; i < queued; i++ {
		next, ok := <-s.send
		if !ok {
			break
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			log.Printf("Error writing newline to %s: %v", s.addr, err)
			return false
		}
		if _, err := w.Write(next); err != nil {
			log.Printf("Error writing queued message to %s: %v", s.addr, err)
			return false
		}
	}

	if err := w.Close(); err != nil {
		log.Printf("Error closing writer for %s: %v", s.addr, err)
		return false
	}
	return true
}
