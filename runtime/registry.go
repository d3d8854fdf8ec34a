// Package runtime owns the live side of the chat system: per-connection
// sessions and the shared registry used for fanout. It contains no storage
// or HTTP logic.
package runtime

import (
	"log/slog"
	"sync"
)

// Registry is the authoritative map from channel name to the sessions
// currently connected to it. It is the single synchronization point for all
// cross-session state: register, unregister, and publish are mutually
// exclusive, so fanout never iterates a half-mutated member list and
// persist-then-broadcast pairs from concurrent senders cannot interleave.
type Registry struct {
	mu       sync.Mutex
	log      *slog.Logger
	channels map[string][]*Session // registration order is fanout order
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		channels: make(map[string][]*Session),
	}
}

// Register appends the session to its channel's member list, creating the
// entry on first use.
func (r *Registry) Register(channel string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[channel] = append(r.channels[channel], s)
}

// Unregister removes the session from the channel. The channel entry is
// dropped entirely once its last session leaves, so short-lived channels do
// not accumulate memory.
func (r *Registry) Unregister(channel string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.channels[channel]
	if !ok {
		return
	}
	kept := members[:0]
	for _, member := range members {
		if member != s {
			kept = append(kept, member)
		}
	}
	if len(kept) == 0 {
		delete(r.channels, channel)
		return
	}
	r.channels[channel] = kept
}

// Publish persists a record and fans its rendered line out to every session
// registered for the channel, in registration order, holding the registry
// lock across both steps. That lock is what gives concurrent senders the
// last-writer-appends-last guarantee: whoever acquires it appends and
// broadcasts as one unit.
//
// Persistence is best-effort: a store failure is logged and the fanout still
// runs (availability over durability).
func (r *Registry) Publish(channel string, payload []byte, persist func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if persist != nil {
		if err := persist(); err != nil {
			r.log.Warn("Persist failed, broadcasting anyway", "channel", channel, "error", err)
		}
	}

	for _, member := range r.channels[channel] {
		if !member.Enqueue(payload) {
			r.log.Warn("Dropping message for slow consumer",
				"channel", channel, "username", member.Username)
		}
	}
}

// Broadcast fans a line out without persisting anything.
func (r *Registry) Broadcast(channel string, payload []byte) {
	r.Publish(channel, payload, nil)
}

// Count reports how many sessions are registered for a channel.
func (r *Registry) Count(channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels[channel])
}

// Contains reports whether the session is currently registered for the
// channel.
func (r *Registry) Contains(channel string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, member := range r.channels[channel] {
		if member == s {
			return true
		}
	}
	return false
}
