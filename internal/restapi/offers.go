package restapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/oshiro-app/oshiro-server/internal/domain"
	"github.com/oshiro-app/oshiro-server/internal/webserver"
	"github.com/oshiro-app/oshiro-server/pkg/metrics"
)

// OfferWithBusiness is an offer annotated with its business and, for nearby
// queries, the distance from the query point.
type OfferWithBusiness struct {
	domain.Offer
	BusinessInfo   interface{} `json:"business_info,omitempty"`
	DistanceMeters int         `json:"distance_meters,omitempty"`
}

func registerOfferRoutes() {
	webserver.ApiGET("/offers/my", listMyOffers)
	webserver.ApiPUT("/offers/:id/deactivate", deactivateOffer)
	webserver.ApiPOST("/offers/nearby", nearbyOffers)
}

func listMyOffers(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}
	db := GetDB(c)

	var businesses []domain.Business
	if err := db.Where("owner_id = ?", user.ID).Find(&businesses).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query businesses", err.Error())
	}
	if len(businesses) == 0 {
		return ok(c, []OfferWithBusiness{})
	}

	businessMap := make(map[int64]domain.Business, len(businesses))
	ids := make([]int64, 0, len(businesses))
	for _, b := range businesses {
		businessMap[b.ID] = b
		ids = append(ids, b.ID)
	}

	var offers []domain.Offer
	if err := db.Where("business_id IN ? and is_active = ?", ids, true).
		Order("created_at DESC").Find(&offers).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query offers", err.Error())
	}

	results := make([]OfferWithBusiness, 0, len(offers))
	for _, o := range offers {
		results = append(results, OfferWithBusiness{
			Offer:        o,
			BusinessInfo: businessMap[o.BusinessId],
		})
	}
	return ok(c, results)
}

func deactivateOffer(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid offer ID", nil)
	}

	db := GetDB(c)
	var offer domain.Offer
	if err := db.Where("id = ?", id).First(&offer).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "OFFER_NOT_FOUND", "Offer not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query offer", err.Error())
	}

	if _, err := ownedBusiness(c, offer.BusinessId, user.ID); err != nil {
		return err
	}

	if err := db.Model(&domain.Offer{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_active":  false,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to deactivate offer", err.Error())
	}

	return ok(c, map[string]interface{}{"success": true, "message": "Offer deactivated successfully"})
}

// nearbyOffers finds businesses inside the radius first, then their live
// offers; results inherit the business distance and keep distance order.
func nearbyOffers(c echo.Context) error {
	if _, err := CurrentUser(c); err != nil {
		return err
	}
	req, err := bindNearbyRequest(c)
	if err != nil {
		return err
	}

	businesses, err := nearbyBusinesses(c, req)
	if err != nil {
		return err
	}

	results := make([]OfferWithBusiness, 0)
	if len(businesses) > 0 {
		businessMap := make(map[int64]BusinessWithDistance, len(businesses))
		ids := make([]int64, 0, len(businesses))
		for _, b := range businesses {
			businessMap[b.ID] = b
			ids = append(ids, b.ID)
		}

		var offers []domain.Offer
		if err := GetDB(c).
			Where("business_id IN ? and is_active = ? and valid_until > ?", ids, true, time.Now()).
			Find(&offers).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query offers", err.Error())
		}

		// businesses arrive distance-sorted; emit offers in that order
		offersByBusiness := make(map[int64][]domain.Offer, len(offers))
		for _, o := range offers {
			offersByBusiness[o.BusinessId] = append(offersByBusiness[o.BusinessId], o)
		}
		for _, b := range businesses {
			for _, o := range offersByBusiness[b.ID] {
				results = append(results, OfferWithBusiness{
					Offer:          o,
					BusinessInfo:   b,
					DistanceMeters: b.DistanceMeters,
				})
			}
		}
	}

	metrics.IncrCounter("offers_nearby_queries", 1)
	return ok(c, map[string]interface{}{
		"total_found":   len(results),
		"radius_meters": req.RadiusMeters,
		"offers":        results,
	})
}
