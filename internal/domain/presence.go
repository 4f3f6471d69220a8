package domain

// PresenceEntry is one connected identity on the live-users roster.
type PresenceEntry struct {
	SocketID string `json:"socketId"`
	UserID   string `json:"userId,omitempty"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}
