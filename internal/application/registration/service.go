package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-signup-presence/internal/domain"
	"github.com/go-signup-presence/internal/pkg/id"
	"github.com/go-signup-presence/internal/pkg/token"
	"github.com/go-signup-presence/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// Service stages a signup in the cache, verifies both channels and promotes
// the staged record to a durable user.
type Service interface {
	Initiate(ctx context.Context, req domain.SignupRequest) (*domain.IssuedCodes, error)
	Resend(ctx context.Context, email string) (*domain.IssuedCodes, error)
	VerifyEmailCode(ctx context.Context, email, code string) error
	VerifyMobileCode(ctx context.Context, email, mobile, code string) error
	Finalize(ctx context.Context, email string) (*domain.User, error)
}

type cacheStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByLoginID(ctx context.Context, loginID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	cache      cacheStore
	users      userStore
	mailer     mailer
	smsSender  smsSender
	ttl        time.Duration
	newCode    func() (string, error)
	bcryptCost int
}

type ServiceDeps struct {
	Cache     cacheStore
	UserRepo  userStore
	Mailer    mailer
	SMSSender smsSender
	// TTL applies to the pending registration and to each issued code.
	TTL time.Duration
	// NewCode overrides the OTP generator; nil uses token.NewOTP.
	NewCode func() (string, error)
	// BcryptCost overrides bcrypt.DefaultCost; zero keeps the default.
	BcryptCost int
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		cache:      deps.Cache,
		users:      deps.UserRepo,
		mailer:     deps.Mailer,
		smsSender:  deps.SMSSender,
		ttl:        deps.TTL,
		newCode:    deps.NewCode,
		bcryptCost: deps.BcryptCost,
	}
	if s.newCode == nil {
		s.newCode = token.NewOTP
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	return s
}

func pendingKey(email string) string { return "pending:" + email }

func otpKey(channel, identifier string) string { return "otp:" + channel + ":" + identifier }

func attemptsKey(channel, identifier string) string { return "attempts:" + channel + ":" + identifier }

// MaxFailedAttempts wrong guesses against one issued code discard it.
// A resend issues a fresh code with a fresh budget.
const MaxFailedAttempts = 5

// DefaultTTL applies when ServiceDeps.TTL is not positive.
const DefaultTTL = 300 * time.Second

func (s *service) Initiate(ctx context.Context, req domain.SignupRequest) (*domain.IssuedCodes, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Mobile = strings.TrimSpace(req.Mobile)
	if req.Email == "" || req.Mobile == "" {
		return nil, fmt.Errorf("email and mobile are required: %w", domain.ErrValidation)
	}
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	p := &domain.PendingRegistration{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Mobile:       req.Mobile,
		Email:        req.Email,
		LoginID:      req.LoginID,
		PasswordHash: string(hash),
	}
	return s.issue(ctx, p)
}

func (s *service) Resend(ctx context.Context, email string) (*domain.IssuedCodes, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", domain.ErrValidation)
	}
	p, err := s.loadPending(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, p)
}

// issue generates fresh codes for p, stages everything and delivers both codes.
// The stage is written before delivery, so a delivery failure leaves it in place.
func (s *service) issue(ctx context.Context, p *domain.PendingRegistration) (*domain.IssuedCodes, error) {
	emailOTP, err := s.newCode()
	if err != nil {
		return nil, err
	}
	mobileOTP, err := s.newCode()
	if err != nil {
		return nil, err
	}
	p.EmailOTP, p.MobileOTP = emailOTP, mobileOTP

	if err := s.savePending(ctx, p); err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, otpKey(domain.ChannelEmail, p.Email), []byte(emailOTP), s.ttl); err != nil {
		return nil, backendErr("store email code", err)
	}
	if err := s.cache.Set(ctx, otpKey(domain.ChannelMobile, p.Mobile), []byte(mobileOTP), s.ttl); err != nil {
		return nil, backendErr("store mobile code", err)
	}
	resetKeys := []string{attemptsKey(domain.ChannelEmail, p.Email), attemptsKey(domain.ChannelMobile, p.Mobile)}
	if err := s.cache.Delete(ctx, resetKeys...); err != nil {
		return nil, backendErr("reset attempt counters", err)
	}

	minutes := int(s.ttl.Round(time.Minute) / time.Minute)
	body := fmt.Sprintf("Your email verification code is %s. It expires in %d minutes.", emailOTP, minutes)
	if err := s.mailer.SendEmail(p.Email, "Verify your email", body); err != nil {
		return nil, fmt.Errorf("send email code: %w: %w", domain.ErrDelivery, err)
	}
	msg := fmt.Sprintf("Your mobile verification code is %s", mobileOTP)
	if err := s.smsSender.SendSMS(ctx, p.Mobile, msg); err != nil {
		slog.Warn("failed to deliver mobile code", "email", p.Email, "err", err)
	}
	return &domain.IssuedCodes{EmailOTP: emailOTP, MobileOTP: mobileOTP}, nil
}

func (s *service) VerifyEmailCode(ctx context.Context, email, code string) error {
	email = strings.TrimSpace(email)
	return s.verify(ctx, email, domain.ChannelEmail, email, code)
}

func (s *service) VerifyMobileCode(ctx context.Context, email, mobile, code string) error {
	return s.verify(ctx, strings.TrimSpace(email), domain.ChannelMobile, strings.TrimSpace(mobile), code)
}

func (s *service) verify(ctx context.Context, email, channel, identifier, code string) error {
	if email == "" || identifier == "" || code == "" {
		return fmt.Errorf("email, %s and otp are required: %w", channel, domain.ErrValidation)
	}
	key := otpKey(channel, identifier)
	stored, err := s.cache.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s code expired or never issued: %w", channel, domain.ErrInvalidCode)
	}
	if err != nil {
		return backendErr("load "+channel+" code", err)
	}
	if string(stored) != code {
		return s.recordFailure(ctx, channel, identifier)
	}

	p, err := s.loadPending(ctx, email)
	if err != nil {
		return err
	}
	switch channel {
	case domain.ChannelEmail:
		p.EmailVerified = true
	case domain.ChannelMobile:
		if p.Mobile != identifier {
			return fmt.Errorf("mobile does not match registration: %w", domain.ErrInvalidCode)
		}
		p.MobileVerified = true
	}
	if err := s.savePending(ctx, p); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, key, attemptsKey(channel, identifier)); err != nil {
		slog.Warn("failed to delete used code", "channel", channel, "email", email, "err", err)
	}
	return nil
}

// recordFailure counts a wrong guess for the code issued to identifier and
// discards the code once MaxFailedAttempts is reached. The counter shares the
// code's TTL. Concurrent failures may undercount.
func (s *service) recordFailure(ctx context.Context, channel, identifier string) error {
	key := attemptsKey(channel, identifier)
	n := 0
	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		n, _ = strconv.Atoi(string(raw))
	case !errors.Is(err, domain.ErrNotFound):
		return backendErr("load "+channel+" attempts", err)
	}
	n++
	if n >= MaxFailedAttempts {
		if err := s.cache.Delete(ctx, otpKey(channel, identifier), key); err != nil {
			return backendErr("discard "+channel+" code", err)
		}
		slog.Warn("verification code discarded after repeated failures", "channel", channel, "attempts", n)
		return fmt.Errorf("%s code discarded after %d failed attempts: %w", channel, n, domain.ErrInvalidCode)
	}
	if err := s.cache.Set(ctx, key, []byte(strconv.Itoa(n)), s.ttl); err != nil {
		return backendErr("store "+channel+" attempts", err)
	}
	return fmt.Errorf("%s code mismatch: %w", channel, domain.ErrInvalidCode)
}

func (s *service) Finalize(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", domain.ErrValidation)
	}
	p, err := s.loadPending(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		// Nothing staged: either already promoted or never verified.
		exists, xerr := s.emailTaken(ctx, email)
		if xerr != nil {
			return nil, xerr
		}
		if exists {
			return nil, fmt.Errorf("email %s: %w", email, domain.ErrAlreadyRegistered)
		}
		return nil, fmt.Errorf("no pending registration for %s: %w", email, domain.ErrNotVerified)
	}
	if err != nil {
		return nil, err
	}
	if !p.Verified() {
		return nil, fmt.Errorf("email verified=%t mobile verified=%t: %w", p.EmailVerified, p.MobileVerified, domain.ErrNotVerified)
	}

	// The pre-checks only save a write; Create's uniqueness constraint decides.
	exists, err := s.emailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("email %s: %w", email, domain.ErrAlreadyRegistered)
	}
	if _, err := s.users.GetByLoginID(ctx, p.LoginID); err == nil {
		return nil, fmt.Errorf("login id %s taken: %w", p.LoginID, domain.ErrAlreadyRegistered)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, backendErr("check login id", err)
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Mobile:       p.Mobile,
		Email:        p.Email,
		LoginID:      p.LoginID,
		PasswordHash: p.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrAlreadyRegistered) {
			return nil, err
		}
		return nil, backendErr("create user", err)
	}

	keys := []string{pendingKey(email), otpKey(domain.ChannelEmail, email), otpKey(domain.ChannelMobile, p.Mobile)}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		slog.Warn("failed to clean up pending registration", "email", email, "err", err)
	}
	return u, nil
}

func (s *service) emailTaken(ctx context.Context, email string) (bool, error) {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, backendErr("check email", err)
}

func (s *service) loadPending(ctx context.Context, email string) (*domain.PendingRegistration, error) {
	raw, err := s.cache.Get(ctx, pendingKey(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("no pending registration for %s: %w", email, domain.ErrNotFound)
	}
	if err != nil {
		return nil, backendErr("load pending registration", err)
	}
	var p domain.PendingRegistration
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, backendErr("decode pending registration", err)
	}
	return &p, nil
}

// savePending writes p and resets its TTL.
func (s *service) savePending(ctx context.Context, p *domain.PendingRegistration) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pending registration: %w", err)
	}
	if err := s.cache.Set(ctx, pendingKey(p.Email), raw, s.ttl); err != nil {
		return backendErr("store pending registration", err)
	}
	return nil
}

func backendErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrBackend, err)
}
