package domain

// OTP delivery channels. Each channel holds at most one live code per identifier.
const (
	ChannelEmail  = "email"
	ChannelMobile = "mobile"
)

// PendingRegistration is the staged, not-yet-durable signup record.
// It lives in the TTL cache keyed by email and is rewritten (TTL reset) on every change.
type PendingRegistration struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Mobile         string `json:"mobile"`
	Email          string `json:"email"`
	LoginID        string `json:"loginId"`
	PasswordHash   string `json:"passwordHash"`
	EmailOTP       string `json:"emailOTP"`
	MobileOTP      string `json:"mobileOTP"`
	EmailVerified  bool   `json:"emailVerified"`
	MobileVerified bool   `json:"mobileVerified"`
}

// Verified reports whether both channels have been confirmed.
func (p *PendingRegistration) Verified() bool {
	return p.EmailVerified && p.MobileVerified
}

// IssuedCodes are the codes generated by a signup or resend.
type IssuedCodes struct {
	EmailOTP  string `json:"emailOTP"`
	MobileOTP string `json:"mobileOTP"`
}
