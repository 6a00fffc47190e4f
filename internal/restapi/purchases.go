package restapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/oshiro-app/oshiro-server/internal/domain"
	"github.com/oshiro-app/oshiro-server/internal/webserver"
	"github.com/oshiro-app/oshiro-server/pkg/common"
	"github.com/oshiro-app/oshiro-server/pkg/metrics"
)

type purchasePayload struct {
	BusinessId int64   `json:"business_id,string" validate:"required"`
	OfferId    *int64  `json:"offer_id,string"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
}

func registerPurchaseRoutes() {
	webserver.ApiPOST("/purchases", createPurchase)
	webserver.ApiGET("/purchases/my", listMyPurchases)
}

func createPurchase(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	var payload purchasePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse purchase", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "business_id and a positive amount are required", nil)
	}

	db := GetDB(c)

	var biz domain.Business
	if err := db.Where("id = ? and is_active = ?", payload.BusinessId, true).First(&biz).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "BUSINESS_NOT_FOUND", "Business not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query business", err.Error())
	}

	now := time.Now()
	discount := 0.0

	if payload.OfferId != nil {
		var offer domain.Offer
		if err := db.Where("id = ? and business_id = ?", *payload.OfferId, payload.BusinessId).
			First(&offer).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "OFFER_NOT_FOUND", "Offer not found for this business", nil)
		} else if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query offer", err.Error())
		}
		if !offer.Redeemable(now) {
			return fail(c, http.StatusConflict, "OFFER_NOT_REDEEMABLE", "Offer is inactive, expired, or fully used", nil)
		}

		// guarded increment: the usage cap is enforced in the same update so
		// two concurrent redemptions cannot both take the last slot
		res := db.Model(&domain.Offer{}).
			Where("id = ? and is_active = ? and valid_until > ?", offer.ID, true, now).
			Where("max_uses IS NULL OR current_uses < max_uses").
			Updates(map[string]interface{}{
				"current_uses": gorm.Expr("current_uses + 1"),
				"updated_at":   now,
			})
		if res.Error != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to redeem offer", res.Error.Error())
		}
		if res.RowsAffected == 0 {
			return fail(c, http.StatusConflict, "OFFER_NOT_REDEEMABLE", "Offer usage limit reached", nil)
		}

		discount = offer.DiscountAmount(payload.Amount)
	}

	purchase := domain.Purchase{
		ID:             common.UUIDint64(),
		CustomerId:     user.ID,
		BusinessId:     payload.BusinessId,
		OfferId:        payload.OfferId,
		OriginalAmount: payload.Amount,
		DiscountAmount: discount,
		PaidAmount:     payload.Amount - discount,
		CreatedAt:      now,
	}
	if err := db.Create(&purchase).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to record purchase", err.Error())
	}

	metrics.IncrCounter("purchases_created", 1)
	return ok(c, purchase)
}

func listMyPurchases(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}
	var rows []domain.Purchase
	if err := GetDB(c).Where("customer_id = ?", user.ID).
		Order("created_at DESC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query purchases", err.Error())
	}
	return ok(c, rows)
}
