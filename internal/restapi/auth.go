package restapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/oshiro-app/oshiro-server/internal/domain"
	"github.com/oshiro-app/oshiro-server/internal/notify"
	"github.com/oshiro-app/oshiro-server/internal/webserver"
	"github.com/oshiro-app/oshiro-server/pkg/common"
	"github.com/oshiro-app/oshiro-server/pkg/metrics"
)

type sendOtpPayload struct {
	Contact     string `json:"contact" validate:"required"`
	ContactType string `json:"contact_type" validate:"required,oneof=phone email"`
}

type verifyOtpPayload struct {
	Contact     string `json:"contact" validate:"required"`
	ContactType string `json:"contact_type" validate:"required,oneof=phone email"`
	OtpCode     string `json:"otp_code" validate:"required"`
}

// AuthToken is the login response.
type AuthToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserId      string `json:"user_id"`
}

func registerAuthRoutes() {
	webserver.PubPOST("/auth/send-otp", sendOtp)
	webserver.PubPOST("/auth/verify-otp", verifyOtp)
}

func sendOtp(c echo.Context) error {
	var payload sendOtpPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "contact and contact_type are required", nil)
	}
	payload.Contact = strings.TrimSpace(payload.Contact)

	appx := GetAppContext(c)

	maxPerHour := appx.GetSettingsInt64Value("otp", "MaxPerContactPerHour")
	if maxPerHour <= 0 {
		maxPerHour = 10
	}
	var recent int64
	if err := GetDB(c).Model(&domain.OtpCode{}).
		Where("contact = ? and created_at > ?", payload.Contact, time.Now().Add(-time.Hour)).
		Count(&recent).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check OTP quota", err.Error())
	}
	if recent >= maxPerHour {
		return fail(c, http.StatusTooManyRequests, "OTP_RATE_LIMITED",
			"Too many OTP requests for this contact, try again later", nil)
	}

	codeLen := int(appx.GetSettingsInt64Value("otp", "CodeLength"))
	code := common.GenerateOTP(codeLen)

	ttl := time.Duration(appx.Config().Otp.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	otp := domain.OtpCode{
		ID:          common.UUIDint64(),
		Contact:     payload.Contact,
		ContactType: payload.ContactType,
		Code:        code,
		IsVerified:  false,
		ExpiresAt:   time.Now().Add(ttl),
		CreatedAt:   time.Now(),
	}
	if err := GetDB(c).Create(&otp).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to store OTP", err.Error())
	}

	// delivery is asynchronous through the bus; the stub sender logs it
	appx.Bus().Publish(notify.TopicOtpSend, notify.OtpMessage{
		Contact:     payload.Contact,
		ContactType: payload.ContactType,
		Code:        code,
	})
	metrics.IncrCounter("auth_otp_requests", 1)

	resp := map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("OTP sent to %s", payload.Contact),
	}
	if appx.Config().Otp.DemoMode {
		resp["demo_otp"] = code
	}
	return ok(c, resp)
}

func verifyOtp(c echo.Context) error {
	var payload verifyOtpPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "contact, contact_type and otp_code are required", nil)
	}
	payload.Contact = strings.TrimSpace(payload.Contact)

	db := GetDB(c)

	var otp domain.OtpCode
	err := db.Where("contact = ? and contact_type = ? and code = ? and is_verified = ? and expires_at > ?",
		payload.Contact, payload.ContactType, payload.OtpCode, false, time.Now()).
		Order("created_at DESC").First(&otp).Error
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_OTP", "Invalid or expired OTP", nil)
	}

	if err := db.Model(&domain.OtpCode{}).Where("id = ?", otp.ID).
		Update("is_verified", true).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update OTP", err.Error())
	}

	user, err := findOrCreateUser(db, payload.Contact, payload.ContactType)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to resolve user", err.Error())
	}

	appx := GetAppContext(c)
	token, err := webserver.CreateAccessToken(appx.Config().Web.Secret, user.ID, appx.Config().Web.JwtExpireDays)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", err.Error())
	}

	zap.L().Info("user authenticated",
		zap.Int64("user_id", user.ID),
		zap.String("contact_type", payload.ContactType))
	metrics.IncrCounter("auth_logins", 1)

	return ok(c, AuthToken{
		AccessToken: token,
		TokenType:   "bearer",
		UserId:      fmt.Sprintf("%d", user.ID),
	})
}

// findOrCreateUser looks the account up by the verified contact, creating a
// customer account on first login and flipping the verified flag otherwise.
func findOrCreateUser(db *gorm.DB, contact, contactType string) (*domain.User, error) {
	column := "phone_number"
	if contactType == domain.ContactTypeEmail {
		column = "email"
	}

	var user domain.User
	err := db.Where(column+" = ?", contact).First(&user).Error
	if err == nil {
		updates := map[string]interface{}{"updated_at": time.Now()}
		if contactType == domain.ContactTypePhone {
			updates["is_phone_verified"] = true
		} else {
			updates["is_email_verified"] = true
		}
		if err := db.Model(&domain.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}

	user = domain.User{
		ID:          common.UUIDint64(),
		UserType:    domain.UserTypeCustomer,
		Preferences: domain.StringList{},
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if contactType == domain.ContactTypePhone {
		user.PhoneNumber = contact
		user.IsPhoneVerified = true
	} else {
		user.Email = contact
		user.IsEmailVerified = true
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
