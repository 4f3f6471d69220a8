package presence

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/go-signup-presence/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	seen [][]domain.PresenceEntry
}

func (r *recorder) Broadcast(entries []domain.PresenceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, entries)
}

func (r *recorder) calls() [][]domain.PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen
}

func entry(socket, email string) domain.PresenceEntry {
	return domain.PresenceEntry{SocketID: socket, Email: email, Name: email}
}

func TestJoin_RequiresSocketID(t *testing.T) {
	r := NewRoster()
	_, err := r.Join(entry("  ", "a@b.com"))
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Empty(t, r.Query())
}

func TestJoin_AppendsInOrder(t *testing.T) {
	r := NewRoster()
	_, err := r.Join(entry("c1", "a@b.com"))
	require.NoError(t, err)
	got, err := r.Join(entry("c2", "c@d.com"))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].SocketID)
	assert.Equal(t, "c2", got[1].SocketID)
}

func TestJoin_SameSocketKeepsLatest(t *testing.T) {
	r := NewRoster()
	_, _ = r.Join(entry("c1", "a@b.com"))
	_, _ = r.Join(entry("c2", "x@y.com"))
	got, err := r.Join(entry("c1", "b@b.com"))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].SocketID, "position is preserved")
	assert.Equal(t, "b@b.com", got[0].Email)
}

func TestLeave_RemovesAndBroadcasts(t *testing.T) {
	r := NewRoster()
	rec := &recorder{}
	r.Subscribe(rec)

	_, _ = r.Join(entry("c1", "a@b.com"))
	_, _ = r.Join(entry("c2", "c@d.com"))
	got := r.Leave("c1")

	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].SocketID)
	calls := rec.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, got, calls[2])
}

func TestLeave_UnknownSocket(t *testing.T) {
	r := NewRoster()
	rec := &recorder{}
	r.Subscribe(rec)
	_, _ = r.Join(entry("c1", "a@b.com"))

	got := r.Leave("nope")
	assert.Len(t, got, 1)
	assert.Len(t, rec.calls(), 2)
}

func TestBroadcast_EveryMutationFullList(t *testing.T) {
	r := NewRoster()
	a, b := &recorder{}, &recorder{}
	r.Subscribe(a)
	r.Subscribe(b)

	_, _ = r.Join(entry("c1", "a@b.com"))
	_, _ = r.Join(entry("c2", "c@d.com"))

	for _, rec := range []*recorder{a, b} {
		calls := rec.calls()
		require.Len(t, calls, 2)
		assert.Len(t, calls[0], 1)
		assert.Len(t, calls[1], 2)
	}
}

func TestQuery_ReturnsCopy(t *testing.T) {
	r := NewRoster()
	_, _ = r.Join(entry("c1", "a@b.com"))
	snap := r.Query()
	snap[0].Email = "mutated"
	assert.Equal(t, "a@b.com", r.Query()[0].Email)
}

func TestClose_StopsBroadcasts(t *testing.T) {
	r := NewRoster()
	rec := &recorder{}
	r.Subscribe(rec)
	r.Close()

	_, err := r.Join(entry("c1", "a@b.com"))
	require.NoError(t, err)
	assert.Empty(t, rec.calls())
	assert.Len(t, r.Query(), 1)
}

func TestRoster_Concurrent(t *testing.T) {
	r := NewRoster()
	r.Subscribe(&recorder{})

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			socket := fmt.Sprintf("c%d", i%10)
			_, _ = r.Join(entry(socket, fmt.Sprintf("u%d@b.com", i)))
			_ = r.Query()
		}(i)
	}
	wg.Wait()

	got := r.Query()
	assert.Len(t, got, 10)
	seen := map[string]bool{}
	for _, e := range got {
		assert.False(t, seen[e.SocketID], "duplicate socket %s", e.SocketID)
		seen[e.SocketID] = true
	}
}

func TestRoster_JoinAs_StampsOwner(t *testing.T) {
	r := NewRoster()
	got, err := r.JoinAs("u1", entry("c1", "a@b.com"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].UserID)
}

func TestRoster_JoinAs_RefusesAnotherUsersSocket(t *testing.T) {
	r := NewRoster()
	_, err := r.JoinAs("owner", entry("c1", "o@b.com"))
	require.NoError(t, err)
	rec := &recorder{}
	r.Subscribe(rec)

	_, err = r.JoinAs("intruder", entry("c1", "i@b.com"))
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Empty(t, rec.calls(), "refused joins do not broadcast")
	got := r.Query()
	require.Len(t, got, 1)
	assert.Equal(t, "owner", got[0].UserID)
	assert.Equal(t, "o@b.com", got[0].Email)
}

func TestRoster_JoinAs_ClaimsAnonymousSocketAndRejoins(t *testing.T) {
	r := NewRoster()
	_, err := r.Join(entry("c1", "anon@b.com"))
	require.NoError(t, err)

	_, err = r.JoinAs("u1", entry("c1", "a@b.com"))
	require.NoError(t, err)
	got, err := r.JoinAs("u1", domain.PresenceEntry{SocketID: "c1", Email: "a@b.com", Name: "Ada"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ada", got[0].Name)
	assert.Equal(t, "u1", got[0].UserID)
}

func TestRoster_JoinAs_BodyUserIDMustMatchOwner(t *testing.T) {
	r := NewRoster()
	e := entry("c1", "a@b.com")
	e.UserID = "someone-else"
	_, err := r.JoinAs("u1", e)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Empty(t, r.Query())
}

var _ Registry = (*Roster)(nil)
