package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snapkart/storefront/internal/database/testutil"
	"github.com/snapkart/storefront/internal/models"
	"github.com/snapkart/storefront/internal/otp"
)

func TestRunOncePurgesStaleOTPRecords(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store, err := otp.NewStore(db)
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	consumed := now.Add(-30 * 24 * time.Hour)

	old := &models.OTPRecord{
		Flow:        "phone_verify",
		IdentityKey: "+919876543210",
		SecretHash:  "aa",
		SecretSalt:  "bb",
		ExpiresAt:   consumed.Add(10 * time.Minute),
		ConsumedAt:  &consumed,
	}
	require.NoError(t, db.Create(old).Error)

	fresh := &models.OTPRecord{
		Flow:        "phone_verify",
		IdentityKey: "+919876543211",
		SecretHash:  "cc",
		SecretSalt:  "dd",
		ExpiresAt:   now.Add(10 * time.Minute),
	}
	require.NoError(t, db.Create(fresh).Error)

	cleaner := NewCleaner(db, store,
		WithNow(func() time.Time { return now }),
		WithRetentionDays(7),
	)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.OTPRecord{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var remaining models.OTPRecord
	require.NoError(t, db.First(&remaining).Error)
	require.Equal(t, "+919876543211", remaining.IdentityKey)
}

func TestRunOncePurgesExpiredCacheEntries(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	now := time.Now()
	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "stale",
		Value:     []byte("1"),
		ExpiresAt: now.Add(-time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "live",
		Value:     []byte("2"),
		ExpiresAt: now.Add(time.Hour),
	}).Error)

	cleaner := NewCleaner(db, nil, WithNow(func() time.Time { return now }))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var keys []string
	require.NoError(t, db.Model(&models.CacheEntry{}).Pluck("key", &keys).Error)
	require.Equal(t, []string{"live"}, keys)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store, err := otp.NewStore(db)
	require.NoError(t, err)

	cleaner := NewCleaner(db, store, WithSchedule("@every 1h"))
	require.NoError(t, cleaner.Start())

	ctx := cleaner.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}
