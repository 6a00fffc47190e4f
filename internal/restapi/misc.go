package restapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/oshiro-app/oshiro-server/internal/webserver"
)

func registerMiscRoutes() {
	webserver.PubGET("/", apiRoot)
	webserver.PubGET("/health", healthCheck)
}

func apiRoot(c echo.Context) error {
	return ok(c, map[string]interface{}{
		"message": "OshirO API - Location-based service discovery",
		"version": "1.0.0",
	})
}

func healthCheck(c echo.Context) error {
	return ok(c, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
