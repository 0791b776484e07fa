// Package server fans accepted messages out to every session in a room and
// records them in the room's history buffer.
package server

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Broadcaster accepts inbound frames from sessions, appends the resulting
// message to room history, and delivers it to every session in the room,
// including the sender.
type Broadcaster struct {
	registry *Registry
	history  *HistoryCache
	renderer Renderer

	mu   sync.Mutex
	seqs map[string]*sync.Mutex
}

// NewBroadcaster wires the broadcast engine to its collaborators.
func NewBroadcaster(registry *Registry, history *HistoryCache, renderer Renderer) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		history:  history,
		renderer: renderer,
		seqs:     make(map[string]*sync.Mutex),
	}
}

// roomSeq returns the room's sequence lock. Holding it across append and
// fan-out serializes message order per room; enqueueing to a target never
// blocks, so the lock is only held for the in-memory mutation.
func (b *Broadcaster) roomSeq(roomID string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	seq := b.seqs[roomID]
	if seq == nil {
		seq = &sync.Mutex{}
		b.seqs[roomID] = seq
	}
	return seq
}

// HandleInbound parses a raw frame from the session and broadcasts the
// result. Malformed frames are logged and dropped; the session stays open and
// other participants never observe them. A delivery failure to one target is
// logged and does not abort delivery to the rest.
func (b *Broadcaster) HandleInbound(s *Session, raw []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("Dropping malformed frame from %s in room %q: %v", s.addr, s.roomID, err)
		return
	}
	if frame.Body == nil {
		log.Printf("Dropping frame without body from %s in room %q", s.addr, s.roomID)
		return
	}

	msg := Message{
		ID:       uuid.NewString(),
		Body:     *frame.Body,
		Username: s.username,
	}

	rendered, err := b.renderer.RenderMessage(msg)
	if err != nil {
		log.Printf("Dropping frame from %s in room %q: %v", s.addr, s.roomID, err)
		return
	}
	msg.Rendered = rendered

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Dropping frame from %s in room %q: encode: %v", s.addr, s.roomID, err)
		return
	}

	seq := b.roomSeq(s.roomID)
	seq.Lock()
	defer seq.Unlock()

	b.history.Append(s.roomID, msg)

	targets := b.registry.Targets(s.roomID)
	log.Printf("Broadcasting message %s to %d sessions in room %q", msg.ID, len(targets), s.roomID)
	for _, target := range targets {
		if err := target.Deliver(payload); err != nil {
			log.Printf("Delivery to %q in room %q failed: %v", target.username, s.roomID, err)
		}
	}
}
