package domain

import "time"

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed_amount"
)

// Offer a time-bounded discount published by a business.
type Offer struct {
	ID              int64     `json:"id,string" gorm:"primaryKey"`
	BusinessId      int64     `gorm:"index" json:"business_id,string"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DiscountType    string    `gorm:"size:32" json:"discount_type"` // percentage or fixed_amount
	DiscountValue   float64   `json:"discount_value"`
	OriginalPrice   *float64  `json:"original_price,omitempty"`
	DiscountedPrice *float64  `json:"discounted_price,omitempty"`
	Image           string    `gorm:"type:text" json:"image,omitempty"`
	ValidFrom       time.Time `json:"valid_from"`
	ValidUntil      time.Time `gorm:"index" json:"valid_until"`
	MaxUses         *int      `json:"max_uses,omitempty"`
	CurrentUses     int       `json:"current_uses"`
	IsActive        bool      `gorm:"index" json:"is_active"`
	MembersOnly     bool      `json:"for_oshiro_users_only"`
	Terms           string    `json:"terms_conditions,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Offer) TableName() string {
	return "offer"
}

// ComputeDiscountedPrice derives the final price from the discount type and
// value. The second return value is false when the discount type is unknown.
func ComputeDiscountedPrice(discountType string, discountValue, originalPrice float64) (float64, bool) {
	switch discountType {
	case DiscountPercentage:
		return originalPrice * (1 - discountValue/100), true
	case DiscountFixed:
		p := originalPrice - discountValue
		if p < 0 {
			p = 0
		}
		return p, true
	default:
		return 0, false
	}
}

// DiscountAmount returns how much the offer takes off the given amount.
func (o *Offer) DiscountAmount(amount float64) float64 {
	switch o.DiscountType {
	case DiscountPercentage:
		return amount * o.DiscountValue / 100
	case DiscountFixed:
		if o.DiscountValue > amount {
			return amount
		}
		return o.DiscountValue
	default:
		return 0
	}
}

// Redeemable reports whether the offer can still be used at the given time:
// active, inside the validity window, and below the usage cap when one is set.
func (o *Offer) Redeemable(now time.Time) bool {
	if !o.IsActive {
		return false
	}
	if !now.Before(o.ValidUntil) {
		return false
	}
	if o.MaxUses != nil && o.CurrentUses >= *o.MaxUses {
		return false
	}
	return true
}
