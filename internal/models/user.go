package models

import "time"

// User describes a storefront customer account.
type User struct {
	BaseModel

	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	Name string `json:"name"`

	Phone           string     `gorm:"index" json:"phone,omitempty"`
	PhoneVerifiedAt *time.Time `json:"phone_verified_at,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	Orders []Order `gorm:"foreignKey:UserID" json:"-"`
}
