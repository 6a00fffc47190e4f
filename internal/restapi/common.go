package restapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/oshiro-app/oshiro-server/internal/app"
	"github.com/oshiro-app/oshiro-server/internal/domain"
	"github.com/oshiro-app/oshiro-server/internal/webserver"
)

// ErrorResponse is the error envelope returned by every handler.
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ListResponse is the paged list envelope.
type ListResponse struct {
	Data    interface{} `json:"data"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"perPage"`
}

// InitRouter registers every API route on the global web server.
func InitRouter() {
	registerMiscRoutes()
	registerAuthRoutes()
	registerUserRoutes()
	registerBusinessRoutes()
	registerOfferRoutes()
	registerDiscoverRoutes()
	registerPurchaseRoutes()
	registerAdminRoutes()
}

// GetAppContext fetches the application context injected by the web server.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

// GetDB fetches the gorm handle for the current request.
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, ErrorResponse{Code: code, Message: message, Details: details})
}

func paged(c echo.Context, rows interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, ListResponse{Data: rows, Total: total, Page: page, PerPage: pageSize})
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func parsePagination(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.QueryParam("perPage"))
	if pageSize < 1 || pageSize > 500 {
		pageSize = 20
	}
	return page, pageSize
}

// CurrentUser resolves the bearer token into the user row it belongs to.
func CurrentUser(c echo.Context) (*domain.User, error) {
	token, _ := c.Get("user").(*jwt.Token)
	if token == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
	}
	claims, _ := token.Claims.(*jwt.RegisteredClaims)
	if claims == nil || claims.Subject == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	uid, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
	}

	var user domain.User
	if err := GetDB(c).Where("id = ?", uid).First(&user).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "User not found")
	} else if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load user")
	}
	return &user, nil
}
