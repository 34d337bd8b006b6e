package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/snapkart/storefront/internal/models"
	"github.com/snapkart/storefront/internal/otp"
	"github.com/snapkart/storefront/pkg/sms"
)

// FlowPhoneVerify labels the profile phone verification flow in the OTP store.
const FlowPhoneVerify = "phone_verify"

// ErrPhoneInvalid indicates the supplied number is not a plausible E.164 phone.
var ErrPhoneInvalid = errors.New("phone verification: invalid phone number")

var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// DefaultPhoneVerifyPolicy returns the built-in policy for phone verification codes.
func DefaultPhoneVerifyPolicy() otp.Policy {
	return otp.Policy{
		Flow:         FlowPhoneVerify,
		Kind:         otp.SecretDigits,
		SecretLength: 6,
		TTL:          10 * time.Minute,
		Cooldown:     30 * time.Second,
	}
}

// PhoneVerificationOption customises the PhoneVerificationService.
type PhoneVerificationOption func(*PhoneVerificationService)

// WithPhoneVerifyPolicy overrides the OTP policy applied to phone verification.
func WithPhoneVerifyPolicy(policy otp.Policy) PhoneVerificationOption {
	return func(s *PhoneVerificationService) {
		policy.Flow = FlowPhoneVerify
		s.policy = policy
	}
}

// PhoneVerificationService confirms ownership of a phone number before it is
// stored on a customer profile. Codes are keyed per user and number, so a
// fresh request for a different number supersedes the previous code.
type PhoneVerificationService struct {
	engine *otp.Engine
	users  *UserService
	sender sms.Sender
	policy otp.Policy
}

// NewPhoneVerificationService constructs a PhoneVerificationService.
func NewPhoneVerificationService(engine *otp.Engine, users *UserService, sender sms.Sender, opts ...PhoneVerificationOption) (*PhoneVerificationService, error) {
	if engine == nil {
		return nil, errors.New("phone verification service: otp engine is required")
	}
	if users == nil {
		return nil, errors.New("phone verification service: user service is required")
	}

	service := &PhoneVerificationService{
		engine: engine,
		users:  users,
		sender: sender,
		policy: DefaultPhoneVerifyPolicy(),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// RequestCode issues a verification code for the number and dispatches it by
// SMS. A failed dispatch fails the request; the persisted code stays inert
// until it is superseded or purged.
func (s *PhoneVerificationService) RequestCode(ctx context.Context, userID, phone string) error {
	phone = normalizePhone(phone)
	if !e164Pattern.MatchString(phone) {
		return ErrPhoneInvalid
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	issued, err := s.engine.Issue(ctx, s.policy, phoneIdentityKey(userID, phone))
	if err != nil {
		return err
	}

	if s.sender != nil {
		message := sms.Message{
			To:   phone,
			Body: fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", issued.Secret, int(s.policy.TTL.Minutes())),
		}
		if sendErr := s.sender.Send(ctx, message); sendErr != nil && !errors.Is(sendErr, sms.ErrSMSDisabled) {
			return fmt.Errorf("phone verification service: send code: %w", sendErr)
		}
	}

	return nil
}

// VerifyCode checks the submitted code and, on success, stores the confirmed
// number on the profile.
func (s *PhoneVerificationService) VerifyCode(ctx context.Context, userID, phone, code string) (*models.User, error) {
	phone = normalizePhone(phone)
	if !e164Pattern.MatchString(phone) {
		return nil, ErrPhoneInvalid
	}

	if _, err := s.engine.Verify(ctx, s.policy, phoneIdentityKey(userID, phone), code); err != nil {
		return nil, err
	}

	return s.users.SetVerifiedPhone(ctx, userID, phone)
}

func phoneIdentityKey(userID, phone string) string {
	return fmt.Sprintf("%s:%s", userID, phone)
}
