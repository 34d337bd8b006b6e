package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snapkart/storefront/internal/auth"
	"github.com/snapkart/storefront/internal/otp"
	"github.com/snapkart/storefront/pkg/mail"
)

// FlowAdminLogin labels the admin console login flow in the OTP store.
const FlowAdminLogin = "admin_login"

var (
	// ErrAdminInvalidCredentials indicates the admin email/password pair did not match.
	ErrAdminInvalidCredentials = errors.New("admin auth: invalid credentials")
)

// DefaultAdminLoginPolicy returns the built-in policy for admin login codes.
func DefaultAdminLoginPolicy() otp.Policy {
	return otp.Policy{
		Flow:         FlowAdminLogin,
		Kind:         otp.SecretMixed,
		SecretLength: 10,
		TTL:          time.Minute,
		Cooldown:     10 * time.Second,
	}
}

// AdminConfig holds the single configured administrator identity.
type AdminConfig struct {
	Email        string
	PasswordHash string
}

// AdminAuthOption customises the AdminAuthService.
type AdminAuthOption func(*AdminAuthService)

// WithAdminLoginPolicy overrides the OTP policy applied to admin logins.
func WithAdminLoginPolicy(policy otp.Policy) AdminAuthOption {
	return func(s *AdminAuthService) {
		policy.Flow = FlowAdminLogin
		s.policy = policy
	}
}

// AdminAuthService drives the two-step admin console login: a password check
// followed by a short-lived mixed-alphabet code sent to the admin mailbox.
type AdminAuthService struct {
	engine *otp.Engine
	mailer mail.Mailer
	jwt    *auth.JWTService
	admin  AdminConfig
	policy otp.Policy

	verifyPassword func(hash, password string) bool
}

// NewAdminAuthService constructs an AdminAuthService.
func NewAdminAuthService(engine *otp.Engine, mailer mail.Mailer, jwt *auth.JWTService, admin AdminConfig, opts ...AdminAuthOption) (*AdminAuthService, error) {
	if engine == nil {
		return nil, errors.New("admin auth service: otp engine is required")
	}
	if jwt == nil {
		return nil, errors.New("admin auth service: jwt service is required")
	}
	admin.Email = normalizeEmail(admin.Email)
	if admin.Email == "" || admin.PasswordHash == "" {
		return nil, errors.New("admin auth service: admin credentials are required")
	}

	service := &AdminAuthService{
		engine:         engine,
		mailer:         mailer,
		jwt:            jwt,
		admin:          admin,
		policy:         DefaultAdminLoginPolicy(),
		verifyPassword: verifyPasswordHash,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// RequestLogin validates the admin credentials and, when they match, issues a
// login code to the admin mailbox. Cooldown violations surface as
// otp.ErrThrottled.
func (s *AdminAuthService) RequestLogin(ctx context.Context, email, password string) error {
	if !s.credentialsMatch(email, password) {
		return ErrAdminInvalidCredentials
	}
	return s.issueCode(ctx)
}

// ResendLogin re-issues the login code for the configured admin. The cooldown
// applies exactly as it does on the initial request.
func (s *AdminAuthService) ResendLogin(ctx context.Context, email string) error {
	if normalizeEmail(email) != s.admin.Email {
		return ErrAdminInvalidCredentials
	}
	return s.issueCode(ctx)
}

// VerifyLogin checks the submitted code and mints an admin session token.
func (s *AdminAuthService) VerifyLogin(ctx context.Context, email, code string) (string, error) {
	if normalizeEmail(email) != s.admin.Email {
		return "", ErrAdminInvalidCredentials
	}

	if _, err := s.engine.Verify(ctx, s.policy, s.admin.Email, code); err != nil {
		return "", err
	}

	token, err := s.jwt.GenerateAccessToken(auth.AccessTokenInput{
		UserID: s.admin.Email,
		Role:   auth.RoleAdmin,
	})
	if err != nil {
		return "", fmt.Errorf("admin auth service: mint session: %w", err)
	}
	return token, nil
}

func (s *AdminAuthService) credentialsMatch(email, password string) bool {
	if normalizeEmail(email) != s.admin.Email {
		return false
	}
	return s.verifyPassword(s.admin.PasswordHash, password)
}

func (s *AdminAuthService) issueCode(ctx context.Context) error {
	issued, err := s.engine.Issue(ctx, s.policy, s.admin.Email)
	if err != nil {
		return err
	}

	if s.mailer != nil {
		message := mail.Message{
			To:      []string{s.admin.Email},
			Subject: "Your admin login code",
			Body:    fmt.Sprintf("Your admin console login code is %s. It expires in %s.\n", issued.Secret, s.policy.TTL),
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, mail.ErrSMTPDisabled) {
			return fmt.Errorf("admin auth service: send code: %w", mailErr)
		}
	}

	return nil
}
