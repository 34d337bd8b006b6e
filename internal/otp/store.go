package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/snapkart/storefront/internal/models"
)

// Store adapts the SQL database to the four operations the lifecycle engine
// needs. Only hashed material ever passes through it.
type Store struct {
	db *gorm.DB
}

// NewStore wraps a gorm handle.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("otp store: db is required")
	}
	return &Store{db: db}, nil
}

// FindLatestActive returns the most recent unconsumed record for the
// flow/identity pair, or nil when none exists. When liveAfter is non-zero the
// lookup additionally requires expires_at to be later than that instant.
func (s *Store) FindLatestActive(ctx context.Context, flow, identityKey string, liveAfter time.Time) (*models.OTPRecord, error) {
	query := s.db.WithContext(ctx).
		Where("flow = ? AND identity_key = ? AND consumed_at IS NULL", flow, identityKey)
	if !liveAfter.IsZero() {
		query = query.Where("expires_at > ?", liveAfter)
	}

	var record models.OTPRecord
	err := query.Order("created_at DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("otp store: find latest active: %w", err)
	}
	return &record, nil
}

// FindLatest is FindLatestActive without the consumption filter. Verification
// uses it to report attempt exhaustion instead of a generic expiry when the
// newest live record was consumed by the attempt ceiling.
func (s *Store) FindLatest(ctx context.Context, flow, identityKey string, liveAfter time.Time) (*models.OTPRecord, error) {
	query := s.db.WithContext(ctx).
		Where("flow = ? AND identity_key = ?", flow, identityKey)
	if !liveAfter.IsZero() {
		query = query.Where("expires_at > ?", liveAfter)
	}

	var record models.OTPRecord
	err := query.Order("created_at DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("otp store: find latest: %w", err)
	}
	return &record, nil
}

// Insert persists a freshly issued record.
func (s *Store) Insert(ctx context.Context, record *models.OTPRecord) error {
	if record == nil {
		return errors.New("otp store: record is required")
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("otp store: insert: %w", err)
	}
	return nil
}

// Patch applies a partial update to a record by id.
func (s *Store) Patch(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).
		Model(&models.OTPRecord{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("otp store: patch: %w", err)
	}
	return nil
}

// ConsumeActive marks every currently active record for the flow/identity
// consumed. Re-consuming an already consumed row is a no-op, so racing callers
// only ever narrow what remains valid.
func (s *Store) ConsumeActive(ctx context.Context, flow, identityKey string, now time.Time) error {
	if err := s.db.WithContext(ctx).
		Model(&models.OTPRecord{}).
		Where("flow = ? AND identity_key = ? AND consumed_at IS NULL", flow, identityKey).
		Update("consumed_at", now).Error; err != nil {
		return fmt.Errorf("otp store: consume active: %w", err)
	}
	return nil
}

// PurgeStale deletes records consumed or expired before the cutoff. Used by
// the maintenance job; the engine itself never deletes rows.
func (s *Store) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("consumed_at < ? OR (consumed_at IS NULL AND expires_at < ?)", cutoff, cutoff).
		Delete(&models.OTPRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("otp store: purge stale: %w", result.Error)
	}
	return result.RowsAffected, nil
}
