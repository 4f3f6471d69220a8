package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-signup-presence/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OTPEnvelope answers signup and resend. Codes are only filled in when exposure is enabled.
type OTPEnvelope struct {
	Message   string `json:"message"`
	EmailOTP  string `json:"emailOTP,omitempty"`
	MobileOTP string `json:"mobileOTP,omitempty"`
}

type EmailVerifiedEnvelope struct {
	EmailVerified bool `json:"emailVerified"`
}

type MobileVerifiedEnvelope struct {
	MobileVerified bool `json:"mobileVerified"`
}

// UserEnvelope wraps a single user, plus a bearer token after login.
type UserEnvelope struct {
	Message string       `json:"message,omitempty"`
	User    *domain.User `json:"user"`
	Token   string       `json:"token,omitempty"`
}

type UsersEnvelope struct {
	Users []domain.User `json:"users"`
}

type LiveUsersEnvelope struct {
	LiveUsers []domain.PresenceEntry `json:"liveUsers"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps a service error onto a status code. Backend details are
// logged, never returned.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrNotVerified),
		errors.Is(err, domain.ErrAlreadyRegistered):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrDelivery):
		slog.Error("delivery failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to deliver verification code")
	default:
		slog.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
