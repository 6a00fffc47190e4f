package restapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/oshiro-app/oshiro-server/internal/domain"
	"github.com/oshiro-app/oshiro-server/internal/geo"
	"github.com/oshiro-app/oshiro-server/internal/webserver"
	"github.com/oshiro-app/oshiro-server/pkg/metrics"
)

const (
	fallbackRadiusMeters    = 1000
	fallbackMaxRadiusMeters = 50000
	fallbackMaxCandidates   = 1000
)

type nearbyRequest struct {
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	RadiusMeters int      `json:"radius_meters"`
	Categories   []string `json:"categories"`
}

// BusinessWithDistance is a business row annotated with the distance from
// the query point.
type BusinessWithDistance struct {
	domain.Business
	DistanceMeters int `json:"distance_meters"`
}

func registerDiscoverRoutes() {
	webserver.ApiPOST("/discover/nearby", discoverNearby)
}

// bindNearbyRequest parses and normalizes a nearby search request,
// applying the configured radius default and ceiling.
func bindNearbyRequest(c echo.Context) (*nearbyRequest, error) {
	var req nearbyRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Unable to parse nearby request")
	}
	if !(geo.Point{Latitude: req.Latitude, Longitude: req.Longitude}).Valid() {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Coordinates out of range")
	}

	appx := GetAppContext(c)
	if req.RadiusMeters <= 0 {
		if d := int(appx.GetSettingsInt64Value("discover", "DefaultRadiusMeters")); d > 0 {
			req.RadiusMeters = d
		} else {
			req.RadiusMeters = fallbackRadiusMeters
		}
	}
	maxRadius := int(appx.GetSettingsInt64Value("discover", "MaxRadiusMeters"))
	if maxRadius <= 0 {
		maxRadius = fallbackMaxRadiusMeters
	}
	if req.RadiusMeters > maxRadius {
		req.RadiusMeters = maxRadius
	}
	return &req, nil
}

// nearbyBusinesses runs the radius scan: load active businesses (optionally
// category-filtered), haversine-filter against the query point, sort by
// distance ascending.
func nearbyBusinesses(c echo.Context, req *nearbyRequest) ([]BusinessWithDistance, error) {
	appx := GetAppContext(c)
	limit := int(appx.GetSettingsInt64Value("discover", "MaxResults"))
	if limit <= 0 {
		limit = fallbackMaxCandidates
	}

	q := GetDB(c).Model(&domain.Business{}).Where("is_active = ?", true)
	if len(req.Categories) > 0 {
		q = q.Where("category IN ?", req.Categories)
	}

	var candidates []domain.Business
	if err := q.Limit(limit).Find(&candidates).Error; err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to query businesses")
	}

	origin := geo.Point{Latitude: req.Latitude, Longitude: req.Longitude}
	matches := geo.Nearby(origin, req.RadiusMeters, candidates)

	results := make([]BusinessWithDistance, 0, len(matches))
	for _, m := range matches {
		results = append(results, BusinessWithDistance{
			Business:       candidates[m.Index],
			DistanceMeters: m.DistanceMeters,
		})
	}
	return results, nil
}

func discoverNearby(c echo.Context) error {
	if _, err := CurrentUser(c); err != nil {
		return err
	}
	req, err := bindNearbyRequest(c)
	if err != nil {
		return err
	}

	results, err := nearbyBusinesses(c, req)
	if err != nil {
		return err
	}

	metrics.IncrCounter("discover_nearby_queries", 1)
	return ok(c, map[string]interface{}{
		"total_found":   len(results),
		"radius_meters": req.RadiusMeters,
		"businesses":    results,
	})
}
