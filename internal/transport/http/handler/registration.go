package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-signup-presence/internal/application/presence"
	"github.com/go-signup-presence/internal/application/registration"
	"github.com/go-signup-presence/internal/domain"
)

// RegistrationHandler drives the signup, verification and finalize flow.
type RegistrationHandler struct {
	svc       registration.Service
	roster    presence.Registry
	exposeOTP bool
}

func NewRegistrationHandler(svc registration.Service, roster presence.Registry, exposeOTP bool) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, roster: roster, exposeOTP: exposeOTP}
}

type resendRequest struct {
	Email string `json:"email"`
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type verifyMobileRequest struct {
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
	OTP    string `json:"otp"`
}

type addRequest struct {
	Email    string `json:"email"`
	SocketID string `json:"socketId"`
	Name     string `json:"name"`
}

func (h *RegistrationHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	codes, err := h.svc.Initiate(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.otpResponse("verification codes sent", codes))
}

func (h *RegistrationHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	codes, err := h.svc.Resend(r.Context(), req.Email)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.otpResponse("verification codes resent", codes))
}

func (h *RegistrationHandler) VerifyEmailOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.VerifyEmailCode(r.Context(), req.Email, req.OTP); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EmailVerifiedEnvelope{EmailVerified: true})
}

func (h *RegistrationHandler) VerifyMobileOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyMobileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.VerifyMobileCode(r.Context(), req.Email, req.Mobile, req.OTP); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MobileVerifiedEnvelope{MobileVerified: true})
}

// Add promotes a verified registration. When the caller names its socket,
// the new user also joins the live roster.
func (h *RegistrationHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Finalize(r.Context(), req.Email)
	if err != nil {
		httpError(w, r, err)
		return
	}
	if req.SocketID != "" && h.roster != nil {
		name := req.Name
		if name == "" {
			name = u.FirstName + " " + u.LastName
		}
		if _, err := h.roster.JoinAs(u.UserID, domain.PresenceEntry{
			SocketID: req.SocketID,
			Email:    u.Email,
			Name:     name,
		}); err != nil {
			slog.Warn("failed to join new user to roster", "user_id", u.UserID, "err", err)
		}
	}
	writeJSON(w, http.StatusCreated, UserEnvelope{Message: "user saved successfully", User: u})
}

func (h *RegistrationHandler) otpResponse(msg string, codes *domain.IssuedCodes) OTPEnvelope {
	env := OTPEnvelope{Message: msg}
	if h.exposeOTP {
		env.EmailOTP = codes.EmailOTP
		env.MobileOTP = codes.MobileOTP
	}
	return env
}
