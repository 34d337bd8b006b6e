package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/snapkart/storefront/internal/models"
	"github.com/snapkart/storefront/pkg/crypto"
)

const (
	defaultMaxAttempts = 5
	saltBytes          = 16
	resetTokenBytes    = 32
)

var (
	// ErrThrottled indicates a code was issued within the resend cooldown.
	ErrThrottled = errors.New("otp: request throttled")
	// ErrInvalid indicates the submitted secret did not match.
	ErrInvalid = errors.New("otp: invalid code")
	// ErrExpired indicates no live issuance exists for the identity.
	ErrExpired = errors.New("otp: code expired")
	// ErrTooManyAttempts indicates the attempt ceiling was reached.
	ErrTooManyAttempts = errors.New("otp: too many attempts")
	// ErrTokenInvalid indicates a follow-up bearer token failed validation.
	ErrTokenInvalid = errors.New("otp: reset token invalid")
)

// SecretKind selects the generator used for a flow.
type SecretKind int

const (
	// SecretDigits issues zero-padded numeric codes.
	SecretDigits SecretKind = iota
	// SecretMixed issues class-diverse mixed-alphabet codes.
	SecretMixed
)

// Policy parameterises one OTP flow.
type Policy struct {
	Flow         string
	Kind         SecretKind
	SecretLength int
	TTL          time.Duration
	Cooldown     time.Duration
	MaxAttempts  int
}

func (p Policy) validate() error {
	if strings.TrimSpace(p.Flow) == "" {
		return errors.New("otp: policy flow is required")
	}
	if p.SecretLength <= 0 {
		return errors.New("otp: policy secret length must be positive")
	}
	if p.TTL <= 0 {
		return errors.New("otp: policy ttl must be positive")
	}
	return nil
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return defaultMaxAttempts
}

// Issued couples a plaintext secret with its persisted record. The secret is
// handed to the delivery adapter and then discarded.
type Issued struct {
	Secret string
	Record *models.OTPRecord
}

// EngineOption customises the Engine.
type EngineOption func(*Engine)

// WithClock injects a custom time source.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// Engine orchestrates issuance and verification for every OTP flow. All
// coordination state lives in the store; the engine itself is stateless and
// safe for concurrent use.
type Engine struct {
	store  *Store
	pepper string
	now    func() time.Time
}

// NewEngine constructs the lifecycle engine. The pepper is a server-side
// secret mixed into every digest and must never be defaulted.
func NewEngine(db *gorm.DB, pepper string, opts ...EngineOption) (*Engine, error) {
	if strings.TrimSpace(pepper) == "" {
		return nil, errors.New("otp engine: pepper is required")
	}

	store, err := NewStore(db)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		store:  store,
		pepper: pepper,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine, nil
}

// Store exposes the underlying hash store, used by the maintenance purge.
func (e *Engine) Store() *Store {
	return e.store
}

// Issue creates a new code for the identity, superseding any active one.
// Cooldown is measured against the latest unconsumed record regardless of its
// expiry: an expired-but-unconsumed row still means "issued very recently".
func (e *Engine) Issue(ctx context.Context, p Policy, identityKey string) (*Issued, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	identityKey = strings.TrimSpace(identityKey)
	if identityKey == "" {
		return nil, errors.New("otp engine: identity key is required")
	}

	now := e.now()

	latest, err := e.store.FindLatestActive(ctx, p.Flow, identityKey, time.Time{})
	if err != nil {
		return nil, err
	}
	if latest != nil && p.Cooldown > 0 && now.Sub(latest.CreatedAt) < p.Cooldown {
		return nil, ErrThrottled
	}

	// Supersede before generating so two rows are never simultaneously active.
	if err := e.store.ConsumeActive(ctx, p.Flow, identityKey, now); err != nil {
		return nil, err
	}

	secret, err := e.generate(p)
	if err != nil {
		return nil, err
	}

	salt, err := crypto.GenerateSalt(saltBytes)
	if err != nil {
		return nil, fmt.Errorf("otp engine: generate salt: %w", err)
	}

	record := &models.OTPRecord{
		Flow:        p.Flow,
		IdentityKey: identityKey,
		SecretHash:  DigestSecret(secret, salt, e.pepper),
		SecretSalt:  salt,
		ExpiresAt:   now.Add(p.TTL),
	}
	record.CreatedAt = now

	if err := e.store.Insert(ctx, record); err != nil {
		return nil, err
	}

	return &Issued{Secret: secret, Record: record}, nil
}

// Verify checks a submitted secret for single-stage flows. On success the
// record is marked verified and consumed in one update.
func (e *Engine) Verify(ctx context.Context, p Policy, identityKey, submitted string) (*models.OTPRecord, error) {
	record, err := e.check(ctx, p, identityKey, submitted)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if err := e.store.Patch(ctx, record.ID, map[string]any{
		"verified_at": now,
		"consumed_at": now,
	}); err != nil {
		return nil, err
	}

	record.VerifiedAt = &now
	record.ConsumedAt = &now
	return record, nil
}

// VerifyAndMintToken checks a submitted secret for two-stage flows. On success
// the record is marked verified (not consumed) and a follow-up bearer token is
// minted against it, with the record's deadline extended to the token TTL.
// The plaintext token is returned to the caller; this is the only secret the
// engine ever hands back instead of delivering out-of-band.
func (e *Engine) VerifyAndMintToken(ctx context.Context, p Policy, identityKey, submitted string, tokenTTL time.Duration) (string, error) {
	if tokenTTL <= 0 {
		return "", errors.New("otp engine: token ttl must be positive")
	}

	record, err := e.check(ctx, p, identityKey, submitted)
	if err != nil {
		return "", err
	}

	token, err := crypto.GenerateToken(resetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("otp engine: generate token: %w", err)
	}
	tokenSalt, err := crypto.GenerateSalt(saltBytes)
	if err != nil {
		return "", fmt.Errorf("otp engine: generate token salt: %w", err)
	}

	now := e.now()
	if err := e.store.Patch(ctx, record.ID, map[string]any{
		"verified_at": now,
		"token_hash":  DigestSecret(token, tokenSalt, e.pepper),
		"token_salt":  tokenSalt,
		"expires_at":  now.Add(tokenTTL),
	}); err != nil {
		return "", err
	}

	return token, nil
}

// RedeemToken validates a follow-up bearer token and consumes the record.
// Consumption happens on a successful match even when the downstream action
// later fails, so repeated redemption cannot probe for valid accounts.
func (e *Engine) RedeemToken(ctx context.Context, flow, identityKey, token string) error {
	identityKey = strings.TrimSpace(identityKey)
	token = strings.TrimSpace(token)
	if identityKey == "" || token == "" {
		return ErrTokenInvalid
	}

	now := e.now()
	record, err := e.store.FindLatestActive(ctx, flow, identityKey, now)
	if err != nil {
		return err
	}
	if record == nil || record.VerifiedAt == nil || record.TokenHash == "" {
		return ErrTokenInvalid
	}

	if !SecretMatches(token, record.TokenSalt, e.pepper, record.TokenHash) {
		return ErrTokenInvalid
	}

	return e.store.Patch(ctx, record.ID, map[string]any{"consumed_at": now})
}

// check runs the shared verification steps and returns the live record on a
// successful hash match, leaving success bookkeeping to the caller.
func (e *Engine) check(ctx context.Context, p Policy, identityKey, submitted string) (*models.OTPRecord, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	identityKey = strings.TrimSpace(identityKey)
	submitted = strings.TrimSpace(submitted)
	if identityKey == "" || submitted == "" {
		return nil, ErrInvalid
	}

	now := e.now()
	record, err := e.store.FindLatestActive(ctx, p.Flow, identityKey, now)
	if err != nil {
		return nil, err
	}
	max := p.maxAttempts()
	if record == nil {
		// Distinguish "consumed by exhaustion" from every other absence so
		// the caller is told to request a fresh code rather than retry.
		last, lastErr := e.store.FindLatest(ctx, p.Flow, identityKey, now)
		if lastErr != nil {
			return nil, lastErr
		}
		if last != nil && last.VerifiedAt == nil && last.Attempts >= max {
			return nil, ErrTooManyAttempts
		}
		// Covers both "never issued" and "issued but already expired";
		// the two are indistinguishable to the caller on purpose.
		return nil, ErrExpired
	}

	if record.Attempts >= max {
		if record.ConsumedAt == nil {
			if err := e.store.Patch(ctx, record.ID, map[string]any{"consumed_at": now}); err != nil {
				return nil, err
			}
		}
		return nil, ErrTooManyAttempts
	}

	if record.VerifiedAt != nil {
		// The secret was already spent minting a follow-up token; only the
		// token can complete the flow now.
		return nil, ErrInvalid
	}

	if !SecretMatches(submitted, record.SecretSalt, e.pepper, record.SecretHash) {
		attempts := record.Attempts + 1
		fields := map[string]any{"attempts": attempts}
		if attempts >= max {
			// Exhaustion is terminal immediately, not on the next attempt.
			fields["consumed_at"] = now
		}
		if err := e.store.Patch(ctx, record.ID, fields); err != nil {
			return nil, err
		}
		if attempts >= max {
			return nil, ErrTooManyAttempts
		}
		return nil, ErrInvalid
	}

	return record, nil
}

func (e *Engine) generate(p Policy) (string, error) {
	switch p.Kind {
	case SecretMixed:
		return Mixed(p.SecretLength)
	default:
		return Digits(p.SecretLength)
	}
}
