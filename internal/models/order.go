package models

import "time"

// Order lifecycle statuses. Returns are only permitted on delivered orders.
const (
	OrderStatusPending   = "pending"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusReturned  = "returned"
)

// Order is a placed storefront order. Amounts are stored in paise to avoid
// floating point drift.
type Order struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User  `json:"-"`

	Status      string     `gorm:"not null;default:pending;index" json:"status"`
	TotalPaise  int64      `gorm:"not null" json:"total_paise"`
	ItemCount   int        `gorm:"not null;default:1" json:"item_count"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// Returnable reports whether the order is in a state that admits a return request.
func (o *Order) Returnable() bool {
	return o != nil && o.Status == OrderStatusDelivered
}
