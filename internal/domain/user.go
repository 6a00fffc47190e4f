package domain

import (
	"database/sql/driver"
	"errors"
	"strings"
	"time"
)

const (
	UserTypeCustomer      = "customer"
	UserTypeBusinessOwner = "business_owner"
)

// ValidPreferences are the categories a customer may subscribe to.
var ValidPreferences = []string{"food", "clothing", "spa"}

// StringList stores a list of strings as a comma separated column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	return strings.Join(l, ","), nil
}

func (l *StringList) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*l = nil
		return nil
	default:
		return errors.New("unsupported StringList source type")
	}
	if s == "" {
		*l = StringList{}
		return nil
	}
	*l = strings.Split(s, ",")
	return nil
}

// User app account, created on first successful OTP verification.
type User struct {
	ID              int64      `json:"id,string" gorm:"primaryKey"`
	PhoneNumber     string     `gorm:"index" json:"phone_number"`
	Email           string     `gorm:"index" json:"email"`
	IsPhoneVerified bool       `json:"is_phone_verified"`
	IsEmailVerified bool       `json:"is_email_verified"`
	Name            string     `json:"name"`
	UserType        string     `gorm:"size:32;index" json:"user_type"` // customer or business_owner
	Preferences     StringList `gorm:"type:text" json:"preferences"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	PushToken       string     `json:"push_token,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "app_user"
}

// HasLocation reports whether the user shared a last known location.
func (u *User) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}
