package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tablelink/restaurant-ops/middlewares"
	"github.com/tablelink/restaurant-ops/services"
	"github.com/tablelink/restaurant-ops/utils"
)

type AnalyticsController struct {
	Analytics *services.AnalyticsService
}

func NewAnalyticsController(analytics *services.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{Analytics: analytics}
}

// Dashboard -> the today-vs-yesterday overview card
func (ac *AnalyticsController) Dashboard(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	overview, err := ac.Analytics.DashboardOverview(identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard overview", overview)
}

// Orders -> order aggregates for ?start=&end= (default last 30 days)
func (ac *AnalyticsController) Orders(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	start, end, err := parseWindow(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	analytics, err := ac.Analytics.OrderAnalytics(identity, start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order analytics", analytics)
}

// TopItems -> best sellers for the window, ?limit= caps the list
func (ac *AnalyticsController) TopItems(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	start, end, err := parseWindow(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	items, err := ac.Analytics.TopSellingItems(identity, start, end, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Top selling items", items)
}

// Deliveries -> dispatch outcomes for the window
func (ac *AnalyticsController) Deliveries(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	start, end, err := parseWindow(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	analytics, err := ac.Analytics.DeliveryAnalytics(identity, start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Delivery analytics", analytics)
}

// parseWindow reads ?start= and ?end= as YYYY-MM-DD. The end date is
// inclusive, so it maps to the start of the following day.
func parseWindow(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now()
	start := now.AddDate(0, 0, -30)
	end := now

	if raw := c.Query("start"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
	}
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed.AddDate(0, 0, 1)
	}
	return start, end, nil
}
