package models

import "time"

// OTPRecord stores one issuance of a one-time code. Only salted hashes are
// persisted; the plaintext secret lives solely in the outbound message.
type OTPRecord struct {
	BaseModel

	// Flow separates the independent lifecycles (admin login, phone
	// verification, order return, password reset) sharing this table.
	Flow string `gorm:"not null;index:idx_otp_flow_identity" json:"flow"`

	// IdentityKey is the channel or subject the code authorises: an email,
	// an E.164 phone number, or a user/order pair.
	IdentityKey string `gorm:"not null;index:idx_otp_flow_identity" json:"identity_key"`

	SecretHash string `gorm:"not null" json:"-"`
	SecretSalt string `gorm:"not null" json:"-"`

	Attempts int `gorm:"not null;default:0" json:"attempts"`

	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	ConsumedAt *time.Time `gorm:"index" json:"consumed_at,omitempty"`

	// TokenHash/TokenSalt are set only by two-stage flows after a successful
	// verification, when the record carries a follow-up bearer token.
	TokenHash string `json:"-"`
	TokenSalt string `json:"-"`
}

// Active reports whether the record is still the live issuance for its
// identity. Expiry is deliberately not considered here; an expired but
// unconsumed row still counts for resend throttling.
func (r *OTPRecord) Active() bool {
	return r != nil && r.ConsumedAt == nil
}
