package webserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/oshiro-app/oshiro-server/internal/app"
)

// AppContextKey is the echo context key under which the application
// context is stored for handlers.
const AppContextKey = "appctx"

var server *WebServer

// WebServer wraps the echo instance serving the REST API.
type WebServer struct {
	root *echo.Echo
	api  *echo.Group
	appx app.AppContext
	// method+path patterns exempt from bearer auth
	public map[string]bool
}

// CustomValidator adapts go-playground/validator to echo's Validator hook.
type CustomValidator struct {
	validate *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Init builds the global web server instance. Route registration helpers
// (ApiGET etc.) operate on this instance.
func Init(appx app.AppContext) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validate: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: false,
	}))
	e.Use(zapLoggerMiddleware())

	s := &WebServer{
		root:   e,
		appx:   appx,
		public: make(map[string]bool),
	}

	// inject application context for handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appx)
			return next(c)
		}
	})

	s.api = e.Group("/api")
	s.api.Use(echojwt.WithConfig(echojwt.Config{
		Skipper: func(c echo.Context) bool {
			return s.public[c.Request().Method+" "+c.Path()]
		},
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			token, err := jwt.ParseWithClaims(auth, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(appx.Config().Web.Secret), nil
			})
			if err != nil || !token.Valid {
				return nil, echojwt.ErrJWTInvalid
			}
			return token, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
		},
	}))

	server = s
	return s
}

// Instance returns the global web server, nil before Init.
func Instance() *WebServer {
	return server
}

// Router exposes the underlying echo instance (used by tests and Listen).
func (s *WebServer) Router() *echo.Echo {
	return s.root
}

// Listen starts the HTTP server and blocks.
func (s *WebServer) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.appx.Config().Web.Host, s.appx.Config().Web.Port)
	zap.L().Info("starting api server", zap.String("addr", addr))
	return s.root.Start(addr)
}

// Shutdown stops the HTTP server.
func (s *WebServer) Shutdown() error {
	return s.root.Close()
}

// ApiGET registers an authenticated GET route under /api.
func ApiGET(path string, h echo.HandlerFunc) {
	server.api.GET(path, h)
}

// ApiPOST registers an authenticated POST route under /api.
func ApiPOST(path string, h echo.HandlerFunc) {
	server.api.POST(path, h)
}

// ApiPUT registers an authenticated PUT route under /api.
func ApiPUT(path string, h echo.HandlerFunc) {
	server.api.PUT(path, h)
}

// ApiDELETE registers an authenticated DELETE route under /api.
func ApiDELETE(path string, h echo.HandlerFunc) {
	server.api.DELETE(path, h)
}

// PubGET registers a GET route under /api exempt from bearer auth.
func PubGET(path string, h echo.HandlerFunc) {
	server.public[http.MethodGet+" /api"+path] = true
	server.api.GET(path, h)
}

// PubPOST registers a POST route under /api exempt from bearer auth.
func PubPOST(path string, h echo.HandlerFunc) {
	server.public[http.MethodPost+" /api"+path] = true
	server.api.POST(path, h)
}

func zapLoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			res := c.Response()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
				zap.L().Warn("http request", fields...)
			} else {
				zap.L().Debug("http request", fields...)
			}
			return err
		}
	}
}

// CreateAccessToken issues an HS256 bearer token for the given user.
func CreateAccessToken(secret string, userID int64, expireDays int) (string, error) {
	if expireDays <= 0 {
		expireDays = 30
	}
	claims := jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", userID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expireDays) * 24 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
