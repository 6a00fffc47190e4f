package restapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oshiro-app/oshiro-server/config"
	"github.com/oshiro-app/oshiro-server/internal/app"
	"github.com/oshiro-app/oshiro-server/internal/domain"
	"github.com/oshiro-app/oshiro-server/internal/notify"
	"github.com/oshiro-app/oshiro-server/internal/restapi"
	"github.com/oshiro-app/oshiro-server/internal/webserver"
	"github.com/oshiro-app/oshiro-server/pkg/common"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		System: config.SysConfig{Appid: "OshirO", Location: "UTC", Workdir: "/tmp"},
		Web:    config.WebConfig{Host: "127.0.0.1", Port: 0, Secret: "test-secret", JwtExpireDays: 1},
		Otp:    config.OtpConfig{TTLMinutes: 10, DemoMode: true},
		Admin:  config.AdminConfig{ApiKey: "oshiro_admin_2024"},
	}
}

func newTestServer(t *testing.T) (*app.Application, *echo.Echo) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	application := app.NewApplication(testConfig())
	application.OverrideDB(db)
	application.OverrideBus(EventBus.New())
	require.NoError(t, application.MigrateDB(false))

	ws := webserver.Init(application)
	restapi.InitRouter()
	return application, ws.Router()
}

func doJSON(e *echo.Echo, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// login walks the OTP flow for the contact and returns a bearer token.
func login(t *testing.T, e *echo.Echo, contact string) string {
	t.Helper()

	rec := doJSON(e, http.MethodPost, "/api/auth/send-otp", "",
		map[string]string{"contact": contact, "contact_type": "phone"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sent := decode(t, rec)
	code, _ := sent["demo_otp"].(string)
	require.NotEmpty(t, code)

	rec = doJSON(e, http.MethodPost, "/api/auth/verify-otp", "",
		map[string]string{"contact": contact, "contact_type": "phone", "otp_code": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	verified := decode(t, rec)
	token, _ := verified["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func seedBusiness(t *testing.T, db *gorm.DB, ownerID int64, name, category string, lat, lon float64) domain.Business {
	t.Helper()
	biz := domain.Business{
		ID:        common.UUIDint64(),
		OwnerId:   ownerID,
		Name:      name,
		Category:  category,
		Address:   "somewhere",
		Latitude:  lat,
		Longitude: lon,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&biz).Error)
	return biz
}

func seedOffer(t *testing.T, db *gorm.DB, businessID int64, title string, validUntil time.Time, active bool) domain.Offer {
	t.Helper()
	offer := domain.Offer{
		ID:            common.UUIDint64(),
		BusinessId:    businessID,
		Title:         title,
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: 10,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidUntil:    validUntil,
		IsActive:      active,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, db.Create(&offer).Error)
	return offer
}

func TestPublicEndpoints(t *testing.T) {
	_, e := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = doJSON(e, http.MethodGet, "/api/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "OshirO")

	rec = doJSON(e, http.MethodGet, "/api/businesses/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode(t, rec)["categories"].([]interface{})
	assert.Len(t, cats, 3)
}

func TestAuthRequiresToken(t *testing.T) {
	_, e := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/users/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOtpFlow(t *testing.T) {
	appx, e := newTestServer(t)

	// capture bus traffic through a recording sender
	var captured []notify.OtpMessage
	svc, err := notify.Start(appx, senderFunc(func(msg notify.OtpMessage) {
		captured = append(captured, msg)
	}))
	require.NoError(t, err)
	defer svc.Stop()

	rec := doJSON(e, http.MethodPost, "/api/auth/send-otp", "",
		map[string]string{"contact": "+911234567890", "contact_type": "phone"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	demoOtp := body["demo_otp"].(string)
	assert.Len(t, demoOtp, 6)

	require.Len(t, captured, 1)
	assert.Equal(t, demoOtp, captured[0].Code)
	assert.Equal(t, "+911234567890", captured[0].Contact)

	// wrong code rejected
	rec = doJSON(e, http.MethodPost, "/api/auth/verify-otp", "",
		map[string]string{"contact": "+911234567890", "contact_type": "phone", "otp_code": "000000"})
	if demoOtp == "000000" {
		t.Skip("collided with the generated code")
	}
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// right code issues a token and creates the user
	rec = doJSON(e, http.MethodPost, "/api/auth/verify-otp", "",
		map[string]string{"contact": "+911234567890", "contact_type": "phone", "otp_code": demoOtp})
	require.Equal(t, http.StatusOK, rec.Code)
	auth := decode(t, rec)
	assert.Equal(t, "bearer", auth["token_type"])
	token := auth["access_token"].(string)

	// an already verified code cannot be replayed
	rec = doJSON(e, http.MethodPost, "/api/auth/verify-otp", "",
		map[string]string{"contact": "+911234567890", "contact_type": "phone", "otp_code": demoOtp})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode(t, rec)
	assert.Equal(t, "+911234567890", profile["phone_number"])
	assert.Equal(t, true, profile["is_phone_verified"])
	assert.Equal(t, "customer", profile["user_type"])
}

// senderFunc adapts a func to notify.Sender for OTP capture.
type senderFunc func(notify.OtpMessage)

func (f senderFunc) SendOTP(msg notify.OtpMessage) error {
	f(msg)
	return nil
}

func (f senderFunc) SendOfferAlert(notify.OfferCreatedMessage) error {
	return nil
}

func TestOtpRateLimit(t *testing.T) {
	appx, e := newTestServer(t)
	require.NoError(t, appx.ConfigMgr().Set("otp", "MaxPerContactPerHour", "3"))

	body := map[string]string{"contact": "+911616161616", "contact_type": "phone"}
	for i := 0; i < 3; i++ {
		rec := doJSON(e, http.MethodPost, "/api/auth/send-otp", "", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := doJSON(e, http.MethodPost, "/api/auth/send-otp", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "OTP_RATE_LIMITED", decode(t, rec)["code"])

	// other contacts are unaffected
	rec = doJSON(e, http.MethodPost, "/api/auth/send-otp", "",
		map[string]string{"contact": "+911717171717", "contact_type": "phone"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPreferences(t *testing.T) {
	_, e := newTestServer(t)
	token := login(t, e, "+911111111111")

	rec := doJSON(e, http.MethodPut, "/api/users/preferences", token, []string{"food", "gaming"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "gaming")

	rec = doJSON(e, http.MethodPut, "/api/users/preferences", token, []string{"food", "spa"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	prefs := decode(t, rec)["preferences"].([]interface{})
	assert.ElementsMatch(t, []interface{}{"food", "spa"}, prefs)
}

func TestLocationUpdate(t *testing.T) {
	_, e := newTestServer(t)
	token := login(t, e, "+912222222222")

	rec := doJSON(e, http.MethodPut, "/api/users/location", token,
		map[string]float64{"latitude": 120, "longitude": 77})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPut, "/api/users/location", token,
		map[string]float64{"latitude": 28.6315, "longitude": 77.2167})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/users/profile", token, nil)
	profile := decode(t, rec)
	assert.InDelta(t, 28.6315, profile["latitude"].(float64), 1e-9)
}

func TestBusinessCreatePromotesOwner(t *testing.T) {
	_, e := newTestServer(t)
	token := login(t, e, "+913333333333")

	rec := doJSON(e, http.MethodPost, "/api/businesses", token, map[string]interface{}{
		"business_name": "Chai Point",
		"category":      "food",
		"phone_number":  "+913333333333",
		"address":       "CP, New Delhi",
		"location":      map[string]float64{"latitude": 28.6315, "longitude": 77.2167},
		"services":      []string{"tea", "snacks"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	biz := decode(t, rec)
	assert.Equal(t, "Chai Point", biz["business_name"])

	rec = doJSON(e, http.MethodGet, "/api/users/profile", token, nil)
	assert.Equal(t, "business_owner", decode(t, rec)["user_type"])

	rec = doJSON(e, http.MethodGet, "/api/businesses/my", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)

	// invalid category rejected
	rec = doJSON(e, http.MethodPost, "/api/businesses", token, map[string]interface{}{
		"business_name": "Bad",
		"category":      "fireworks",
		"phone_number":  "1",
		"address":       "x",
		"location":      map[string]float64{"latitude": 1, "longitude": 1},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceAndOfferOwnership(t *testing.T) {
	appx, e := newTestServer(t)
	ownerToken := login(t, e, "+914444444444")
	strangerToken := login(t, e, "+915555555555")

	var owner domain.User
	require.NoError(t, appx.DB().Where("phone_number = ?", "+914444444444").First(&owner).Error)
	biz := seedBusiness(t, appx.DB(), owner.ID, "Spa One", "spa", 28.6, 77.2)

	svcBody := map[string]interface{}{"name": "Massage", "category": "spa"}
	rec := doJSON(e, http.MethodPost, fmt.Sprintf("/api/businesses/%d/services", biz.ID), strangerToken, svcBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/api/businesses/%d/services", biz.ID), ownerToken, svcBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// services listing is public
	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/api/businesses/%d/services", biz.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var services []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	assert.Len(t, services, 1)
}

func TestOfferCreateDiscounts(t *testing.T) {
	appx, e := newTestServer(t)
	token := login(t, e, "+916666666666")

	var owner domain.User
	require.NoError(t, appx.DB().Where("phone_number = ?", "+916666666666").First(&owner).Error)
	biz := seedBusiness(t, appx.DB(), owner.ID, "Threads", "clothing", 28.6, 77.2)

	until := time.Now().Add(72 * time.Hour).Format(time.RFC3339)

	rec := doJSON(e, http.MethodPost, fmt.Sprintf("/api/businesses/%d/offers", biz.ID), token, map[string]interface{}{
		"title":          "20% off",
		"description":    "everything",
		"discount_type":  "percentage",
		"discount_value": 20,
		"original_price": 1000,
		"valid_until":    until,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	offer := decode(t, rec)
	assert.InDelta(t, 800, offer["discounted_price"].(float64), 1e-6)

	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/api/businesses/%d/offers", biz.ID), token, map[string]interface{}{
		"title":          "300 off",
		"description":    "big spenders",
		"discount_type":  "fixed_amount",
		"discount_value": 300,
		"original_price": 250,
		"valid_until":    until,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, decode(t, rec)["discounted_price"].(float64))

	// omitted valid_until falls back to the configured validity window
	require.NoError(t, appx.ConfigMgr().Set("offers", "DefaultValidityDays", "7"))
	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/api/businesses/%d/offers", biz.ID), token, map[string]interface{}{
		"title":          "open ended",
		"description":    "no date given",
		"discount_type":  "percentage",
		"discount_value": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	validUntil, err := time.Parse(time.RFC3339, decode(t, rec)["valid_until"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), validUntil, time.Minute)

	// unknown discount type
	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/api/businesses/%d/offers", biz.ID), token, map[string]interface{}{
		"title": "x", "description": "y", "discount_type": "bogo",
		"discount_value": 1, "valid_until": until,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unparseable date
	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/api/businesses/%d/offers", biz.ID), token, map[string]interface{}{
		"title": "x", "description": "y", "discount_type": "percentage",
		"discount_value": 1, "valid_until": "not-a-date",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// public listing shows only live offers
	seedOffer(t, appx.DB(), biz.ID, "expired", time.Now().Add(-time.Hour), true)
	seedOffer(t, appx.DB(), biz.ID, "inactive", time.Now().Add(time.Hour), false)
	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/api/businesses/%d/offers", biz.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var offers []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &offers))
	assert.Len(t, offers, 3)
}

func TestDeactivateOffer(t *testing.T) {
	appx, e := newTestServer(t)
	ownerToken := login(t, e, "+917777777777")
	strangerToken := login(t, e, "+918888888888")

	var owner domain.User
	require.NoError(t, appx.DB().Where("phone_number = ?", "+917777777777").First(&owner).Error)
	biz := seedBusiness(t, appx.DB(), owner.ID, "Cafe", "food", 28.6, 77.2)
	offer := seedOffer(t, appx.DB(), biz.ID, "combo", time.Now().Add(time.Hour), true)

	rec := doJSON(e, http.MethodPut, fmt.Sprintf("/api/offers/%d/deactivate", offer.ID), strangerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodPut, fmt.Sprintf("/api/offers/%d/deactivate", offer.ID), ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var after domain.Offer
	require.NoError(t, appx.DB().First(&after, offer.ID).Error)
	assert.False(t, after.IsActive)
}

func TestDiscoverNearby(t *testing.T) {
	appx, e := newTestServer(t)
	token := login(t, e, "+919999999999")

	// origin: Connaught Place
	seedBusiness(t, appx.DB(), 1, "60m away", "food", 28.6320, 77.2170)
	seedBusiness(t, appx.DB(), 1, "1km away", "spa", 28.6315, 77.2269)
	seedBusiness(t, appx.DB(), 1, "13km away", "food", 28.7041, 77.1025)
	inactive := seedBusiness(t, appx.DB(), 1, "inactive", "food", 28.6316, 77.2168)
	require.NoError(t, appx.DB().Model(&domain.Business{}).
		Where("id = ?", inactive.ID).Update("is_active", false).Error)

	rec := doJSON(e, http.MethodPost, "/api/discover/nearby", token, map[string]interface{}{
		"latitude": 28.6315, "longitude": 77.2167, "radius_meters": 2000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["total_found"])
	assert.Equal(t, float64(2000), body["radius_meters"])

	businesses := body["businesses"].([]interface{})
	require.Len(t, businesses, 2)
	first := businesses[0].(map[string]interface{})
	second := businesses[1].(map[string]interface{})
	assert.Equal(t, "60m away", first["business_name"])
	assert.Equal(t, "1km away", second["business_name"])
	assert.LessOrEqual(t, first["distance_meters"].(float64), second["distance_meters"].(float64))
	assert.LessOrEqual(t, second["distance_meters"].(float64), float64(2000))

	// category filter
	rec = doJSON(e, http.MethodPost, "/api/discover/nearby", token, map[string]interface{}{
		"latitude": 28.6315, "longitude": 77.2167, "radius_meters": 2000,
		"categories": []string{"spa"},
	})
	body = decode(t, rec)
	assert.Equal(t, float64(1), body["total_found"])

	// default radius applies when omitted
	rec = doJSON(e, http.MethodPost, "/api/discover/nearby", token, map[string]interface{}{
		"latitude": 28.6315, "longitude": 77.2167,
	})
	body = decode(t, rec)
	assert.Equal(t, float64(1000), body["radius_meters"])

	// bad coordinates rejected
	rec = doJSON(e, http.MethodPost, "/api/discover/nearby", token, map[string]interface{}{
		"latitude": 99, "longitude": 977,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNearbyOffers(t *testing.T) {
	appx, e := newTestServer(t)
	token := login(t, e, "+911010101010")

	near := seedBusiness(t, appx.DB(), 1, "near", "food", 28.6320, 77.2170)
	far := seedBusiness(t, appx.DB(), 1, "far", "food", 28.7041, 77.1025)
	mid := seedBusiness(t, appx.DB(), 1, "mid", "food", 28.6315, 77.2269)

	seedOffer(t, appx.DB(), near.ID, "near offer", time.Now().Add(time.Hour), true)
	seedOffer(t, appx.DB(), near.ID, "near expired", time.Now().Add(-time.Hour), true)
	seedOffer(t, appx.DB(), mid.ID, "mid offer", time.Now().Add(time.Hour), true)
	seedOffer(t, appx.DB(), far.ID, "far offer", time.Now().Add(time.Hour), true)

	rec := doJSON(e, http.MethodPost, "/api/offers/nearby", token, map[string]interface{}{
		"latitude": 28.6315, "longitude": 77.2167, "radius_meters": 2000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["total_found"])

	offers := body["offers"].([]interface{})
	require.Len(t, offers, 2)
	first := offers[0].(map[string]interface{})
	second := offers[1].(map[string]interface{})
	assert.Equal(t, "near offer", first["title"])
	assert.Equal(t, "mid offer", second["title"])
	assert.LessOrEqual(t, first["distance_meters"].(float64), second["distance_meters"].(float64))
	require.NotNil(t, first["business_info"])
	assert.Equal(t, "near", first["business_info"].(map[string]interface{})["business_name"])
}

func TestPurchaseFlow(t *testing.T) {
	appx, e := newTestServer(t)
	token := login(t, e, "+911212121212")

	biz := seedBusiness(t, appx.DB(), 1, "Diner", "food", 28.6, 77.2)
	maxUses := 1
	offer := domain.Offer{
		ID:            common.UUIDint64(),
		BusinessId:    biz.ID,
		Title:         "flat 100 off",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 100,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidUntil:    time.Now().Add(time.Hour),
		MaxUses:       &maxUses,
		IsActive:      true,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, appx.DB().Create(&offer).Error)

	body := map[string]interface{}{
		"business_id": fmt.Sprintf("%d", biz.ID),
		"offer_id":    fmt.Sprintf("%d", offer.ID),
		"amount":      500,
	}
	rec := doJSON(e, http.MethodPost, "/api/purchases", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	purchase := decode(t, rec)
	assert.InDelta(t, 100, purchase["discount_amount"].(float64), 1e-9)
	assert.InDelta(t, 400, purchase["paid_amount"].(float64), 1e-9)

	// usage cap reached, second redemption conflicts
	rec = doJSON(e, http.MethodPost, "/api/purchases", token, body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// purchase without an offer still records
	rec = doJSON(e, http.MethodPost, "/api/purchases", token, map[string]interface{}{
		"business_id": fmt.Sprintf("%d", biz.ID),
		"amount":      250,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, decode(t, rec)["discount_amount"].(float64))

	rec = doJSON(e, http.MethodGet, "/api/purchases/my", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	assert.Len(t, mine, 2)

	var after domain.Offer
	require.NoError(t, appx.DB().First(&after, offer.ID).Error)
	assert.Equal(t, 1, after.CurrentUses)
}

func TestAdminEndpoints(t *testing.T) {
	appx, e := newTestServer(t)
	custToken := login(t, e, "+911313131313")
	_ = custToken
	merchToken := login(t, e, "+911414141414")

	rec := doJSON(e, http.MethodPost, "/api/businesses", merchToken, map[string]interface{}{
		"business_name": "Mart",
		"category":      "food",
		"phone_number":  "+911414141414",
		"address":       "x",
		"location":      map[string]float64{"latitude": 28.6, "longitude": 77.2},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// wrong key
	rec = doJSON(e, http.MethodGet, "/api/admin/customers?admin_key=nope", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/admin/customers?admin_key=oshiro_admin_2024", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["total"])
	customers := body["customers"].([]interface{})
	require.Len(t, customers, 1)
	sample := customers[0].(map[string]interface{})
	for _, f := range []string{"id", "phone_number", "name", "preferences"} {
		assert.Contains(t, sample, f)
	}

	rec = doJSON(e, http.MethodGet, "/api/admin/merchants?admin_key=oshiro_admin_2024", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, float64(1), body["total"])
	merchants := body["merchants"].([]interface{})
	require.Len(t, merchants, 1)
	bs := merchants[0].(map[string]interface{})["businesses"].([]interface{})
	require.Len(t, bs, 1)
	for _, f := range []string{"id", "business_name", "category", "latitude", "longitude"} {
		assert.Contains(t, bs[0].(map[string]interface{}), f)
	}

	rec = doJSON(e, http.MethodGet, "/api/admin/stats?admin_key=oshiro_admin_2024", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.Equal(t, float64(2), stats["users"])
	assert.Equal(t, float64(1), stats["businesses"])

	rec = doJSON(e, http.MethodGet, "/api/admin/export/customers.csv?admin_key=oshiro_admin_2024", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")
	assert.Contains(t, rec.Body.String(), "phone_number")
	assert.Contains(t, rec.Body.String(), "+911313131313")

	// audit rows written for admin access
	var logs int64
	appx.DB().Model(&domain.SysOprLog{}).Count(&logs)
	assert.Greater(t, logs, int64(0))
}
