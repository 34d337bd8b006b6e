package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snapkart/storefront/internal/otp"
	"github.com/snapkart/storefront/pkg/mail"
)

// FlowPasswordReset labels the password reset flow in the OTP store.
const FlowPasswordReset = "password_reset"

const defaultResetTokenTTL = 15 * time.Minute

// DefaultPasswordResetPolicy returns the built-in policy for reset codes.
func DefaultPasswordResetPolicy() otp.Policy {
	return otp.Policy{
		Flow:         FlowPasswordReset,
		Kind:         otp.SecretDigits,
		SecretLength: 6,
		TTL:          10 * time.Minute,
		Cooldown:     10 * time.Second,
	}
}

// PasswordResetOption customises the PasswordResetService.
type PasswordResetOption func(*PasswordResetService)

// WithPasswordResetPolicy overrides the OTP policy applied to password resets.
func WithPasswordResetPolicy(policy otp.Policy) PasswordResetOption {
	return func(s *PasswordResetService) {
		policy.Flow = FlowPasswordReset
		s.policy = policy
	}
}

// WithResetTokenTTL overrides the validity window of the minted reset token.
func WithResetTokenTTL(ttl time.Duration) PasswordResetOption {
	return func(s *PasswordResetService) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// PasswordResetService drives the two-stage reset: a code proves control of
// the mailbox, then the minted reset token authorises exactly one password
// change.
type PasswordResetService struct {
	engine   *otp.Engine
	users    *UserService
	mailer   mail.Mailer
	policy   otp.Policy
	tokenTTL time.Duration
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(engine *otp.Engine, users *UserService, mailer mail.Mailer, opts ...PasswordResetOption) (*PasswordResetService, error) {
	if engine == nil {
		return nil, errors.New("password reset service: otp engine is required")
	}
	if users == nil {
		return nil, errors.New("password reset service: user service is required")
	}

	service := &PasswordResetService{
		engine:   engine,
		users:    users,
		mailer:   mailer,
		policy:   DefaultPasswordResetPolicy(),
		tokenTTL: defaultResetTokenTTL,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// RequestCode issues a reset code for a registered account. An unknown email
// is reported to the caller; the storefront deliberately tells the customer
// when no account exists rather than failing silently.
func (s *PasswordResetService) RequestCode(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.issueCode(ctx, user.Email)
}

// ResendCode re-issues the reset code, subject to the cooldown.
func (s *PasswordResetService) ResendCode(ctx context.Context, email string) error {
	return s.RequestCode(ctx, email)
}

// VerifyCode checks the submitted code and mints the single-use reset token
// the caller must present to ResetPassword. The code row stays consumed-free
// until the token is redeemed or expires.
func (s *PasswordResetService) VerifyCode(ctx context.Context, email, code string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return s.engine.VerifyAndMintToken(ctx, s.policy, user.Email, code, s.tokenTTL)
}

// ResetPassword redeems the reset token and replaces the account password.
// Redemption consumes the token whether or not the password update succeeds,
// so a token can never authorise two attempts.
func (s *PasswordResetService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := s.engine.RedeemToken(ctx, FlowPasswordReset, user.Email, token); err != nil {
		return err
	}

	return s.users.UpdatePassword(ctx, user.ID, newPassword)
}

func (s *PasswordResetService) issueCode(ctx context.Context, email string) error {
	issued, err := s.engine.Issue(ctx, s.policy, email)
	if err != nil {
		return err
	}

	if s.mailer != nil {
		message := mail.Message{
			To:      []string{email},
			Subject: "Your password reset code",
			Body:    fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.\nIf you did not request a reset, you can ignore this message.\n", issued.Secret, int(s.policy.TTL.Minutes())),
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, mail.ErrSMTPDisabled) {
			return fmt.Errorf("password reset service: send code: %w", mailErr)
		}
	}

	return nil
}
