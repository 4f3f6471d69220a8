package handler

import (
	"net/http"

	"github.com/go-signup-presence/internal/application/presence"
	"github.com/go-signup-presence/internal/domain"
	"github.com/go-signup-presence/internal/transport/http/middleware"
)

// PresenceHandler exposes the live-users roster over HTTP.
type PresenceHandler struct {
	roster presence.Registry
}

func NewPresenceHandler(roster presence.Registry) *PresenceHandler {
	return &PresenceHandler{roster: roster}
}

func (h *PresenceHandler) LiveUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LiveUsersEnvelope{LiveUsers: h.roster.Query()})
}

// JoinRoom adds the caller's socket to the roster. With a bearer token the
// entry is joined as the token's user, who cannot replace another user's socket.
func (h *PresenceHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var e domain.PresenceEntry
	if !decodeJSON(w, r, &e) {
		return
	}
	var (
		entries []domain.PresenceEntry
		err     error
	)
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		if e.Email == "" {
			e.Email = claims.Email
		}
		entries, err = h.roster.JoinAs(claims.UserID, e)
	} else {
		entries, err = h.roster.Join(e)
	}
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LiveUsersEnvelope{LiveUsers: entries})
}
