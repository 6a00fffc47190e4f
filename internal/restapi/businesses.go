package restapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/oshiro-app/oshiro-server/internal/domain"
	"github.com/oshiro-app/oshiro-server/internal/geo"
	"github.com/oshiro-app/oshiro-server/internal/notify"
	"github.com/oshiro-app/oshiro-server/internal/webserver"
	"github.com/oshiro-app/oshiro-server/pkg/common"
	"github.com/oshiro-app/oshiro-server/pkg/metrics"
)

type businessPayload struct {
	BusinessName string    `json:"business_name" validate:"required,min=1,max=200"`
	Description  string    `json:"description"`
	Category     string    `json:"category" validate:"required"`
	PhoneNumber  string    `json:"phone_number" validate:"required"`
	Email        string    `json:"email"`
	Address      string    `json:"address" validate:"required"`
	Location     geo.Point `json:"location"`
	Services     []string  `json:"services"`
}

type servicePayload struct {
	Name            string   `json:"name" validate:"required,min=1,max=200"`
	Description     string   `json:"description"`
	Price           *float64 `json:"price"`
	DurationMinutes *int     `json:"duration_minutes"`
	Category        string   `json:"category" validate:"required"`
}

type offerPayload struct {
	Title         string   `json:"title" validate:"required,min=1,max=200"`
	Description   string   `json:"description" validate:"required"`
	DiscountType  string   `json:"discount_type" validate:"required"`
	DiscountValue float64  `json:"discount_value" validate:"required,gt=0"`
	OriginalPrice *float64 `json:"original_price"`
	Image         string   `json:"image_base64"`
	ValidUntil    string   `json:"valid_until"`
	MaxUses       *int     `json:"max_uses"`
	Terms         string   `json:"terms_conditions"`
}

func registerBusinessRoutes() {
	webserver.PubGET("/businesses/categories", listCategories)
	webserver.ApiPOST("/businesses", createBusiness)
	webserver.ApiGET("/businesses/my", listMyBusinesses)
	webserver.PubGET("/businesses/:id/services", listBusinessServices)
	webserver.ApiPOST("/businesses/:id/services", createBusinessService)
	webserver.PubGET("/businesses/:id/offers", listBusinessOffers)
	webserver.ApiPOST("/businesses/:id/offers", createBusinessOffer)
}

func listCategories(c echo.Context) error {
	return ok(c, map[string]interface{}{"categories": domain.Categories})
}

func createBusiness(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	var payload businessPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse business", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Missing required business fields", nil)
	}
	if !common.InSlice(payload.Category, domain.ValidCategories) {
		return fail(c, http.StatusBadRequest, "INVALID_CATEGORY",
			"Category must be one of: "+strings.Join(domain.ValidCategories, ", "), nil)
	}
	if !payload.Location.Valid() {
		return fail(c, http.StatusBadRequest, "INVALID_LOCATION", "Coordinates out of range", nil)
	}

	now := time.Now()
	biz := domain.Business{
		ID:          common.UUIDint64(),
		OwnerId:     user.ID,
		Name:        strings.TrimSpace(payload.BusinessName),
		Description: payload.Description,
		Category:    payload.Category,
		PhoneNumber: payload.PhoneNumber,
		Email:       payload.Email,
		Address:     payload.Address,
		Latitude:    payload.Location.Latitude,
		Longitude:   payload.Location.Longitude,
		Services:    domain.StringList(payload.Services),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := GetDB(c).Create(&biz).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create business", err.Error())
	}

	// registering a business promotes the account
	if user.UserType != domain.UserTypeBusinessOwner {
		if err := GetDB(c).Model(&domain.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"user_type":  domain.UserTypeBusinessOwner,
			"updated_at": now,
		}).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to promote owner", err.Error())
		}
	}

	metrics.IncrCounter("businesses_created", 1)
	return ok(c, biz)
}

func listMyBusinesses(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}
	var rows []domain.Business
	if err := GetDB(c).Where("owner_id = ?", user.ID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query businesses", err.Error())
	}
	return ok(c, rows)
}

func listBusinessServices(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid business ID", nil)
	}
	var rows []domain.BizService
	if err := GetDB(c).Where("business_id = ? and is_active = ?", id, true).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query services", err.Error())
	}
	return ok(c, rows)
}

// ownedBusiness loads a business and checks it belongs to the caller.
func ownedBusiness(c echo.Context, businessID, ownerID int64) (*domain.Business, error) {
	var biz domain.Business
	err := GetDB(c).Where("id = ? and owner_id = ?", businessID, ownerID).First(&biz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Business not found or not owned by user")
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to query business")
	}
	return &biz, nil
}

func createBusinessService(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid business ID", nil)
	}
	if _, err := ownedBusiness(c, id, user.ID); err != nil {
		return err
	}

	var payload servicePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse service", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Missing required service fields", nil)
	}

	now := time.Now()
	svc := domain.BizService{
		ID:              common.UUIDint64(),
		BusinessId:      id,
		Name:            strings.TrimSpace(payload.Name),
		Description:     payload.Description,
		Price:           payload.Price,
		DurationMinutes: payload.DurationMinutes,
		Category:        payload.Category,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := GetDB(c).Create(&svc).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create service", err.Error())
	}
	return ok(c, svc)
}

func listBusinessOffers(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid business ID", nil)
	}
	var rows []domain.Offer
	if err := GetDB(c).
		Where("business_id = ? and is_active = ? and valid_until > ?", id, true, time.Now()).
		Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query offers", err.Error())
	}
	return ok(c, rows)
}

func createBusinessOffer(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid business ID", nil)
	}
	biz, err := ownedBusiness(c, id, user.ID)
	if err != nil {
		return err
	}

	var payload offerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse offer", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Missing required offer fields", nil)
	}
	if payload.DiscountType != domain.DiscountPercentage && payload.DiscountType != domain.DiscountFixed {
		return fail(c, http.StatusBadRequest, "INVALID_DISCOUNT_TYPE",
			"discount_type must be 'percentage' or 'fixed_amount'", nil)
	}
	if payload.MaxUses != nil && *payload.MaxUses <= 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "max_uses must be positive when set", nil)
	}

	// omitted valid_until falls back to the configured validity window
	var validUntil time.Time
	if strings.TrimSpace(payload.ValidUntil) == "" {
		days := int(GetAppContext(c).GetSettingsInt64Value("offers", "DefaultValidityDays"))
		if days <= 0 {
			days = 30
		}
		validUntil = time.Now().AddDate(0, 0, days)
	} else {
		validUntil, err = dateparse.ParseAny(payload.ValidUntil)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid date format for valid_until", nil)
		}
		if !validUntil.After(time.Now()) {
			return fail(c, http.StatusBadRequest, "INVALID_DATE", "valid_until must be in the future", nil)
		}
	}

	var discountedPrice *float64
	if payload.OriginalPrice != nil {
		p, okType := domain.ComputeDiscountedPrice(payload.DiscountType, payload.DiscountValue, *payload.OriginalPrice)
		if okType {
			discountedPrice = &p
		}
	}

	now := time.Now()
	offer := domain.Offer{
		ID:              common.UUIDint64(),
		BusinessId:      id,
		Title:           strings.TrimSpace(payload.Title),
		Description:     payload.Description,
		DiscountType:    payload.DiscountType,
		DiscountValue:   payload.DiscountValue,
		OriginalPrice:   payload.OriginalPrice,
		DiscountedPrice: discountedPrice,
		Image:           payload.Image,
		ValidFrom:       now,
		ValidUntil:      validUntil,
		MaxUses:         payload.MaxUses,
		CurrentUses:     0,
		IsActive:        true,
		MembersOnly:     true,
		Terms:           payload.Terms,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := GetDB(c).Create(&offer).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create offer", err.Error())
	}

	GetAppContext(c).Bus().Publish(notify.TopicOfferCreated, notify.OfferCreatedMessage{
		OfferID:      offer.ID,
		BusinessID:   biz.ID,
		BusinessName: biz.Name,
		Title:        offer.Title,
	})
	metrics.IncrCounter("offers_created", 1)

	return ok(c, offer)
}
