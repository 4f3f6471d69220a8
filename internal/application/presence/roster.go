// Package presence keeps the process-lifetime list of connected identities.
package presence

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-signup-presence/internal/domain"
)

// Broadcaster receives the full roster after every mutation.
// Implementations must not block and must not call back into the Roster.
type Broadcaster interface {
	Broadcast(entries []domain.PresenceEntry)
}

// Registry is the roster as seen by handlers and the websocket hub.
type Registry interface {
	Join(e domain.PresenceEntry) ([]domain.PresenceEntry, error)
	JoinAs(owner string, e domain.PresenceEntry) ([]domain.PresenceEntry, error)
	Leave(socketID string) []domain.PresenceEntry
	Query() []domain.PresenceEntry
}

// Roster is an ordered, socket-id keyed list of live users.
// An entry for a socket that joins again is replaced in place.
type Roster struct {
	mu      sync.Mutex
	entries []domain.PresenceEntry
	subs    []Broadcaster
	closed  bool
}

func NewRoster() *Roster {
	return &Roster{}
}

// Subscribe registers b for every subsequent broadcast.
func (r *Roster) Subscribe(b Broadcaster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, b)
}

// Join adds or replaces the entry for e.SocketID and returns the new roster.
func (r *Roster) Join(e domain.PresenceEntry) ([]domain.PresenceEntry, error) {
	return r.join("", e)
}

// JoinAs is Join on behalf of an authenticated user. The entry is stored
// under owner, and an existing entry that belongs to a different user is
// left alone with ErrForbidden.
func (r *Roster) JoinAs(owner string, e domain.PresenceEntry) ([]domain.PresenceEntry, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is required: %w", domain.ErrValidation)
	}
	if e.UserID != "" && e.UserID != owner {
		return nil, fmt.Errorf("user id %s does not match token: %w", e.UserID, domain.ErrForbidden)
	}
	e.UserID = owner
	return r.join(owner, e)
}

func (r *Roster) join(owner string, e domain.PresenceEntry) ([]domain.PresenceEntry, error) {
	e.SocketID = strings.TrimSpace(e.SocketID)
	if e.SocketID == "" {
		return nil, fmt.Errorf("socket id is required: %w", domain.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].SocketID != e.SocketID {
			continue
		}
		if cur := r.entries[i].UserID; owner != "" && cur != "" && cur != owner {
			return nil, fmt.Errorf("socket %s belongs to another user: %w", e.SocketID, domain.ErrForbidden)
		}
		r.entries[i] = e
		return r.publishLocked(), nil
	}
	r.entries = append(r.entries, e)
	return r.publishLocked(), nil
}

// Leave drops every entry for socketID. Unknown ids still broadcast.
func (r *Roster) Leave(socketID string) []domain.PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.SocketID != socketID {
			kept = append(kept, e)
		}
	}
	clear(r.entries[len(kept):])
	r.entries = kept
	return r.publishLocked()
}

// Query returns a copy of the current roster.
func (r *Roster) Query() []domain.PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Close stops broadcasting. Later mutations still update the roster.
func (r *Roster) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.subs = nil
}

// publishLocked delivers under the lock so subscribers observe mutations in order.
func (r *Roster) publishLocked() []domain.PresenceEntry {
	snap := r.snapshotLocked()
	if !r.closed {
		for _, b := range r.subs {
			b.Broadcast(snap)
		}
	}
	return snap
}

func (r *Roster) snapshotLocked() []domain.PresenceEntry {
	out := make([]domain.PresenceEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
