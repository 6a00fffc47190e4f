package restapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/oshiro-app/oshiro-server/internal/domain"
	"github.com/oshiro-app/oshiro-server/internal/geo"
	"github.com/oshiro-app/oshiro-server/internal/webserver"
	"github.com/oshiro-app/oshiro-server/pkg/common"
)

type locationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type pushTokenPayload struct {
	PushToken string `json:"push_token" validate:"required"`
}

func registerUserRoutes() {
	webserver.ApiGET("/users/profile", getUserProfile)
	webserver.ApiPUT("/users/preferences", updateUserPreferences)
	webserver.ApiPUT("/users/location", updateUserLocation)
	webserver.ApiPUT("/users/push-token", updateUserPushToken)
}

func getUserProfile(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}
	return ok(c, user)
}

func updateUserPreferences(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	// the body is a bare JSON array of category ids
	var prefs []string
	if err := c.Bind(&prefs); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Expected a JSON array of preferences", err.Error())
	}

	var invalid []string
	for _, p := range prefs {
		if !common.InSlice(p, domain.ValidPreferences) {
			invalid = append(invalid, p)
		}
	}
	if len(invalid) > 0 {
		return fail(c, http.StatusBadRequest, "INVALID_PREFERENCES",
			"Invalid preferences: "+strings.Join(invalid, ", ")+". Valid options: "+strings.Join(domain.ValidPreferences, ", "), nil)
	}

	if err := GetDB(c).Model(&domain.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"preferences": domain.StringList(prefs),
		"updated_at":  time.Now(),
	}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update preferences", err.Error())
	}

	return ok(c, map[string]interface{}{"success": true, "message": "Preferences updated successfully"})
}

func updateUserLocation(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	var payload locationPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse location", err.Error())
	}
	pt := geo.Point{Latitude: payload.Latitude, Longitude: payload.Longitude}
	if !pt.Valid() {
		return fail(c, http.StatusBadRequest, "INVALID_LOCATION", "Coordinates out of range", nil)
	}

	if err := GetDB(c).Model(&domain.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"latitude":   payload.Latitude,
		"longitude":  payload.Longitude,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update location", err.Error())
	}

	return ok(c, map[string]interface{}{"success": true, "message": "Location updated successfully"})
}

func updateUserPushToken(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	var payload pushTokenPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse push token", err.Error())
	}
	if strings.TrimSpace(payload.PushToken) == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "push_token is required", nil)
	}

	if err := GetDB(c).Model(&domain.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"push_token": strings.TrimSpace(payload.PushToken),
		"updated_at": time.Now(),
	}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update push token", err.Error())
	}

	return ok(c, map[string]interface{}{"success": true, "message": "Push token updated successfully"})
}
