package restapi

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/oshiro-app/oshiro-server/internal/domain"
	"github.com/oshiro-app/oshiro-server/internal/webserver"
	"github.com/oshiro-app/oshiro-server/pkg/common"
	"github.com/oshiro-app/oshiro-server/pkg/metrics"
)

const adminListLimit = 100

// MerchantWithBusinesses is a business-owner account with its storefronts.
type MerchantWithBusinesses struct {
	domain.User
	Businesses []domain.Business `json:"businesses"`
}

func registerAdminRoutes() {
	// guarded by admin_key, not by bearer tokens
	webserver.PubGET("/admin/customers", adminListCustomers)
	webserver.PubGET("/admin/merchants", adminListMerchants)
	webserver.PubGET("/admin/stats", adminStats)
	webserver.PubGET("/admin/export/customers.csv", adminExportCustomersCSV)
}

// requireAdminKey matches the admin_key query parameter against the
// configured key. Returns a 401 error response when it does not match.
func requireAdminKey(c echo.Context) error {
	configured := GetAppContext(c).Config().Admin.ApiKey
	given := c.QueryParam("admin_key")
	if configured == "" ||
		subtle.ConstantTimeCompare([]byte(given), []byte(configured)) != 1 {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid admin key")
	}

	// audit trail for admin access
	if err := GetDB(c).Create(&domain.SysOprLog{
		ID:        common.UUIDint64(),
		OprName:   "admin_key",
		OprIp:     c.RealIP(),
		OptAction: c.Request().Method,
		OptDesc:   c.Path(),
		OptTime:   time.Now(),
	}).Error; err != nil {
		zap.L().Error("failed to write admin audit log", zap.Error(err))
	}
	return nil
}

func adminListCustomers(c echo.Context) error {
	if err := requireAdminKey(c); err != nil {
		return err
	}
	db := GetDB(c)

	var total int64
	if err := db.Model(&domain.User{}).Where("user_type = ?", domain.UserTypeCustomer).
		Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count customers", err.Error())
	}

	var customers []domain.User
	if err := db.Where("user_type = ?", domain.UserTypeCustomer).
		Order("created_at DESC").Limit(adminListLimit).Find(&customers).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query customers", err.Error())
	}

	return ok(c, map[string]interface{}{
		"total":     total,
		"showing":   len(customers),
		"customers": customers,
	})
}

func adminListMerchants(c echo.Context) error {
	if err := requireAdminKey(c); err != nil {
		return err
	}
	db := GetDB(c)

	var total int64
	if err := db.Model(&domain.User{}).Where("user_type = ?", domain.UserTypeBusinessOwner).
		Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count merchants", err.Error())
	}

	var owners []domain.User
	if err := db.Where("user_type = ?", domain.UserTypeBusinessOwner).
		Order("created_at DESC").Limit(adminListLimit).Find(&owners).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query merchants", err.Error())
	}

	merchants := make([]MerchantWithBusinesses, 0, len(owners))
	if len(owners) > 0 {
		ids := make([]int64, 0, len(owners))
		for _, o := range owners {
			ids = append(ids, o.ID)
		}
		var businesses []domain.Business
		if err := db.Where("owner_id IN ?", ids).Find(&businesses).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query businesses", err.Error())
		}
		byOwner := make(map[int64][]domain.Business, len(owners))
		for _, b := range businesses {
			byOwner[b.OwnerId] = append(byOwner[b.OwnerId], b)
		}
		for _, o := range owners {
			bs := byOwner[o.ID]
			if bs == nil {
				bs = []domain.Business{}
			}
			merchants = append(merchants, MerchantWithBusinesses{User: o, Businesses: bs})
		}
	}

	return ok(c, map[string]interface{}{
		"total":     total,
		"showing":   len(merchants),
		"merchants": merchants,
	})
}

func adminStats(c echo.Context) error {
	if err := requireAdminKey(c); err != nil {
		return err
	}
	db := GetDB(c)
	now := time.Now()

	var users, businesses, offers, activeOffers, purchases int64
	db.Model(&domain.User{}).Count(&users)
	db.Model(&domain.Business{}).Where("is_active = ?", true).Count(&businesses)
	db.Model(&domain.Offer{}).Count(&offers)
	db.Model(&domain.Offer{}).
		Where("is_active = ? and valid_until > ?", true, now).Count(&activeOffers)
	db.Model(&domain.Purchase{}).Count(&purchases)

	type moneyTotals struct {
		Gross    float64
		Discount float64
	}
	var totals moneyTotals
	db.Model(&domain.Purchase{}).
		Select("COALESCE(SUM(original_amount),0) as gross, COALESCE(SUM(discount_amount),0) as discount").
		Scan(&totals)

	return ok(c, map[string]interface{}{
		"users":            users,
		"businesses":       businesses,
		"offers":           offers,
		"active_offers":    activeOffers,
		"purchases":        purchases,
		"gross_amount":     totals.Gross,
		"discount_amount":  totals.Discount,
		"process_cpu_pct":  float64(metrics.GetLatest("oshiro_cpuuse")) / 100,
		"process_mem_mb":   metrics.GetLatest("oshiro_memuse"),
		"otp_requests":     metrics.GetLatest("auth_otp_requests"),
		"nearby_queries":   metrics.GetLatest("discover_nearby_queries") + metrics.GetLatest("offers_nearby_queries"),
		"generated_at":     now,
	})
}

type customerCSVRow struct {
	Id          string `csv:"id"`
	PhoneNumber string `csv:"phone_number"`
	Email       string `csv:"email"`
	Name        string `csv:"name"`
	Preferences string `csv:"preferences"`
	CreatedAt   string `csv:"created_at"`
}

func adminExportCustomersCSV(c echo.Context) error {
	if err := requireAdminKey(c); err != nil {
		return err
	}

	var customers []domain.User
	if err := GetDB(c).Where("user_type = ?", domain.UserTypeCustomer).
		Order("created_at").Find(&customers).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query customers", err.Error())
	}

	rows := make([]customerCSVRow, 0, len(customers))
	for _, u := range customers {
		rows = append(rows, customerCSVRow{
			Id:          fmt.Sprintf("%d", u.ID),
			PhoneNumber: u.PhoneNumber,
			Email:       u.Email,
			Name:        u.Name,
			Preferences: strings.Join(u.Preferences, "|"),
			CreatedAt:   u.CreatedAt.Format(time.RFC3339),
		})
	}

	data, err := gocsv.MarshalString(&rows)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to render CSV", err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="customers.csv"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(data))
}
