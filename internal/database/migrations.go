package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/snapkart/storefront/internal/models"
	"github.com/snapkart/storefront/pkg/crypto"
)

// Demo account installed by SeedData. The password is intentionally public;
// the account exists so a fresh install has an order to walk through the
// return flow with.
const (
	DemoUserEmail    = "demo@snapkart.test"
	DemoUserPassword = "demo-password"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.ReturnRequest{},
		&models.OTPRecord{},
		&models.CacheEntry{},
	)
}

// SeedData installs the demo customer and a delivered order on an empty
// database. It is idempotent: once any user row exists it does nothing, so
// real deployments that have taken registrations are never touched.
func SeedData(db *gorm.DB) error {
	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if users > 0 {
		return nil
	}

	hash, err := crypto.HashPassword(DemoUserPassword)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	user := models.User{
		Email:        DemoUserEmail,
		PasswordHash: hash,
		Name:         "Demo Customer",
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("seed demo user: %w", err)
	}

	delivered := time.Now().UTC().Add(-48 * time.Hour)
	order := models.Order{
		UserID:      user.ID,
		Status:      models.OrderStatusDelivered,
		TotalPaise:  249900,
		ItemCount:   2,
		DeliveredAt: &delivered,
	}
	if err := db.Create(&order).Error; err != nil {
		return fmt.Errorf("seed demo order: %w", err)
	}

	return nil
}
