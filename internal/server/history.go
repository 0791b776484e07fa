// Package server caches recent messages per room so users entering a channel
// can see prior context.
package server

import "sync"

// HistoryCache keeps, per room, a bounded buffer of the most recent messages
// in arrival order. When the buffer exceeds its bound, the oldest entries are
// evicted first. Buffers are created lazily and live for the process lifetime.
type HistoryCache struct {
	mu    sync.RWMutex
	size  int
	rooms map[string]*roomHistory
}

type roomHistory struct {
	mu   sync.Mutex
	msgs []Message
}

// NewHistoryCache creates a cache bounding each room's buffer to size entries.
// A non-positive size falls back to the default of 200.
func NewHistoryCache(size int) *HistoryCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &HistoryCache{
		size:  size,
		rooms: make(map[string]*roomHistory),
	}
}

func (hc *HistoryCache) room(id string) *roomHistory {
	hc.mu.RLock()
	h := hc.rooms[id]
	hc.mu.RUnlock()
	if h != nil {
		return h
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()
	if h = hc.rooms[id]; h == nil {
		h = &roomHistory{}
		hc.rooms[id] = h
	}
	return h
}

// Append adds msg to the room's buffer, evicting from the front until the
// buffer is back at its bound.
func (hc *HistoryCache) Append(roomID string, msg Message) {
	h := hc.room(roomID)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.msgs = append(h.msgs, msg)
	if excess := len(h.msgs) - hc.size; excess > 0 {
		// Copy so evicted entries do not pin the backing array.
		h.msgs = append([]Message(nil), h.msgs[excess:]...)
	}
}

// Snapshot returns a copy of the room's buffer in arrival order, used to
// prime a newly joined client's view. Unseen rooms yield an empty sequence.
func (hc *HistoryCache) Snapshot(roomID string) []Message {
	hc.mu.RLock()
	h := hc.rooms[roomID]
	hc.mu.RUnlock()
	if h == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.msgs...)
}
