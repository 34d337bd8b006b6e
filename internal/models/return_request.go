package models

import "time"

// Return request statuses. A request is pending until the owning customer
// confirms it with a one-time code.
const (
	ReturnStatusPending   = "pending"
	ReturnStatusConfirmed = "confirmed"
)

// ReturnRequest records a customer-initiated return on a delivered order.
type ReturnRequest struct {
	BaseModel

	OrderID string `gorm:"type:uuid;not null;index" json:"order_id"`
	Order   *Order `json:"-"`

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`

	Reason string `json:"reason"`

	Status      string     `gorm:"not null;default:pending;index" json:"status"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}
