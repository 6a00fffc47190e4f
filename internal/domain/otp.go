package domain

import "time"

const (
	ContactTypePhone = "phone"
	ContactTypeEmail = "email"
)

// OtpCode a one-time verification code sent to a phone number or email.
type OtpCode struct {
	ID          int64     `json:"id,string" gorm:"primaryKey"`
	Contact     string    `gorm:"index" json:"contact"`
	ContactType string    `gorm:"size:16" json:"contact_type"` // phone or email
	Code        string    `gorm:"size:16" json:"-"`
	IsVerified  bool      `json:"is_verified"`
	ExpiresAt   time.Time `gorm:"index" json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (OtpCode) TableName() string {
	return "otp_code"
}
