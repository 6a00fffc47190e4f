package domain

import (
	"time"

	"github.com/oshiro-app/oshiro-server/internal/geo"
)

// ValidCategories are the supported business categories.
var ValidCategories = []string{"food", "clothing", "spa"}

// Category describes a business category for client pickers.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Categories is the static category catalog served by the API.
var Categories = []Category{
	{ID: "food", Name: "Food", Icon: "restaurant"},
	{ID: "clothing", Name: "Clothing", Icon: "tshirt-crew"},
	{ID: "spa", Name: "Beauty & Spa", Icon: "spa"},
}

// Business a merchant storefront with a fixed location.
type Business struct {
	ID           int64      `json:"id,string" gorm:"primaryKey"`
	OwnerId      int64      `gorm:"index" json:"owner_id,string"`
	Name         string     `gorm:"index" json:"business_name"`
	Description  string     `json:"description"`
	Category     string     `gorm:"size:32;index" json:"category"` // food, clothing, spa
	PhoneNumber  string     `json:"phone_number"`
	Email        string     `json:"email"`
	Address      string     `json:"address"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Services     StringList `gorm:"type:text" json:"services"`
	Rating       float64    `json:"rating"`
	TotalRatings int        `json:"total_ratings"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Business) TableName() string {
	return "business"
}

// Location implements geo.Located for the nearby scan.
func (b Business) Location() geo.Point {
	return geo.Point{Latitude: b.Latitude, Longitude: b.Longitude}
}

// BizService an individual service/menu item offered by a business.
type BizService struct {
	ID              int64     `json:"id,string" gorm:"primaryKey"`
	BusinessId      int64     `gorm:"index" json:"business_id,string"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Price           *float64  `json:"price,omitempty"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	Category        string    `gorm:"size:32" json:"category"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (BizService) TableName() string {
	return "business_service"
}
