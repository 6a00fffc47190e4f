package domain

import "time"

// Purchase a redemption record linking a customer, a business and
// optionally the offer that was applied.
type Purchase struct {
	ID             int64     `json:"id,string" gorm:"primaryKey"`
	CustomerId     int64     `gorm:"index" json:"customer_id,string"`
	BusinessId     int64     `gorm:"index" json:"business_id,string"`
	OfferId        *int64    `gorm:"index" json:"offer_id,string,omitempty"`
	OriginalAmount float64   `json:"original_amount"`
	DiscountAmount float64   `json:"discount_amount"`
	PaidAmount     float64   `json:"paid_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Purchase) TableName() string {
	return "purchase"
}
