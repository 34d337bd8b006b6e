package services

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

var (
	// ErrEmailTaken indicates the email address is already registered.
	ErrEmailTaken = errors.New("user: email already registered")
	// ErrInvalidCredentials indicates an email/password pair that does not match.
	ErrInvalidCredentials = errors.New("user: invalid credentials")
	// ErrUserInactive indicates the account has been deactivated.
	ErrUserInactive = errors.New("user: account inactive")
	// ErrUserNotFound indicates no account exists for the identifier.
	ErrUserNotFound = errors.New("user: not found")
)

// UserOption customises the UserService.
type UserOption func(*UserService)

// WithUserClock injects a custom time source.
func WithUserClock(clock func() time.Time) UserOption {
	return func(s *UserService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// UserService manages customer accounts and credential checks.
type UserService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, opts ...UserOption) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}

	service := &UserService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates a new customer account with a hashed password.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, errors.New("user service: email is required")
	}
	if input.Password == "" {
		return nil, errors.New("user service: password is required")
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(input.Name),
		IsActive:     true,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return &user, nil
}

// Authenticate checks an email/password pair and records the login time.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	now := s.now()
	if err := s.db.WithContext(ctx).
		Model(user).
		Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("user service: record login: %w", err)
	}
	user.LastLoginAt = &now

	return user, nil
}

// GetByID loads an account by its identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("user service: id is required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// GetByEmail loads an account by its normalised email address.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.New("user service: email is required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// UpdatePassword replaces the stored password hash for an account.
func (s *UserService) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if newPassword == "" {
		return errors.New("user service: password is required")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Model(user).
		Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("user service: update password: %w", err)
	}
	return nil
}

// SetVerifiedPhone stores a confirmed phone number against an account.
func (s *UserService) SetVerifiedPhone(ctx context.Context, userID, phone string) (*models.User, error) {
	phone = normalizePhone(phone)
	if phone == "" {
		return nil, errors.New("user service: phone is required")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.db.WithContext(ctx).
		Model(user).
		Updates(map[string]any{"phone": phone, "phone_verified_at": now}).Error; err != nil {
		return nil, fmt.Errorf("user service: update phone: %w", err)
	}

	user.Phone = phone
	user.PhoneVerifiedAt = &now
	return user, nil
}
