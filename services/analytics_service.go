package services

import (
	"time"

	"github.com/tablelink/restaurant-ops/models"
	"gorm.io/gorm"
)

// AnalyticsService derives dashboard numbers from order and dispatch state.
// Strictly read-only. Queries are keyed by business id and time window so the
// read path rides the indexes instead of scanning whole tables.
type AnalyticsService struct {
	DB     *gorm.DB
	Tenant *TenantService
}

func NewAnalyticsService(db *gorm.DB, tenant *TenantService) *AnalyticsService {
	return &AnalyticsService{DB: db, Tenant: tenant}
}

// GrowthPercent follows the dashboard convention: growth from zero counts as
// 100% when anything happened at all, otherwise 0%.
func GrowthPercent(previous, current float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

type DashboardOverview struct {
	TodayOrders          int64   `json:"today_orders"`
	TodayRevenue         float64 `json:"today_revenue"`
	OrderGrowthPercent   float64 `json:"order_growth_percent"`
	RevenueGrowthPercent float64 `json:"revenue_growth_percent"`
	TotalOrders          int64   `json:"total_orders"`
	TotalRevenue         float64 `json:"total_revenue"`
	ActiveDeliveries     int64   `json:"active_deliveries"`
	OnlineAgents         int64   `json:"online_agents"`
	OccupiedTables       int64   `json:"occupied_tables"`
	AvailableTables      int64   `json:"available_tables"`
}

// DashboardOverview compares today against yesterday for the caller's
// business. Admin gets the numbers across all businesses.
func (as *AnalyticsService) DashboardOverview(identity models.Identity) (*DashboardOverview, error) {
	businessID, err := as.scope(identity)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)

	overview := &DashboardOverview{}

	todayOrders, todayRevenue, err := as.ordersBetween(businessID, todayStart, now)
	if err != nil {
		return nil, err
	}
	yesterdayOrders, yesterdayRevenue, err := as.ordersBetween(businessID, yesterdayStart, todayStart)
	if err != nil {
		return nil, err
	}

	overview.TodayOrders = todayOrders
	overview.TodayRevenue = todayRevenue
	overview.OrderGrowthPercent = GrowthPercent(float64(yesterdayOrders), float64(todayOrders))
	overview.RevenueGrowthPercent = GrowthPercent(yesterdayRevenue, todayRevenue)

	totals := as.scoped(as.DB.Model(&models.Order{}), businessID)
	if err := totals.Count(&overview.TotalOrders).Error; err != nil {
		return nil, err
	}
	var totalRevenue *float64
	if err := as.scoped(as.DB.Model(&models.Order{}), businessID).
		Where("status NOT IN ?", []models.OrderStatus{models.OrderCancelled}).
		Select("SUM(total_amount)").Scan(&totalRevenue).Error; err != nil {
		return nil, err
	}
	if totalRevenue != nil {
		overview.TotalRevenue = *totalRevenue
	}

	if err := as.scoped(as.DB.Model(&models.DeliveryTracking{}), businessID).
		Where("status NOT IN ?", []models.DeliveryStatus{
			models.DeliveryDelivered, models.DeliveryCancelled, models.DeliveryFailed,
		}).Count(&overview.ActiveDeliveries).Error; err != nil {
		return nil, err
	}
	if err := as.scoped(as.DB.Model(&models.DeliveryAgent{}), businessID).
		Where("is_online = ?", true).Count(&overview.OnlineAgents).Error; err != nil {
		return nil, err
	}
	if err := as.scoped(as.DB.Model(&models.Table{}), businessID).
		Where("is_available = ?", false).Count(&overview.OccupiedTables).Error; err != nil {
		return nil, err
	}
	if err := as.scoped(as.DB.Model(&models.Table{}), businessID).
		Where("is_available = ?", true).Count(&overview.AvailableTables).Error; err != nil {
		return nil, err
	}

	return overview, nil
}

type PopularItem struct {
	MenuItemID   uint    `json:"menu_item_id"`
	Name         string  `json:"name"`
	QuantitySold int     `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
}

type OrderAnalytics struct {
	TotalOrders       int64                      `json:"total_orders"`
	TotalRevenue      float64                    `json:"total_revenue"`
	AverageOrderValue float64                    `json:"average_order_value"`
	OrdersByStatus    map[models.OrderStatus]int `json:"orders_by_status"`
	OrdersByType      map[models.OrderType]int   `json:"orders_by_type"`
	OrdersByHour      map[int]int                `json:"orders_by_hour"`
	TopSellingItems   []PopularItem              `json:"top_selling_items"`
}

// OrderAnalytics aggregates the orders of a time window.
func (as *AnalyticsService) OrderAnalytics(identity models.Identity, start, end time.Time) (*OrderAnalytics, error) {
	businessID, err := as.scope(identity)
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	if err := as.scoped(as.DB, businessID).
		Where("created_at >= ? AND created_at < ?", start, end).
		Find(&orders).Error; err != nil {
		return nil, err
	}

	analytics := &OrderAnalytics{
		OrdersByStatus: make(map[models.OrderStatus]int),
		OrdersByType:   make(map[models.OrderType]int),
		OrdersByHour:   make(map[int]int),
	}
	for _, order := range orders {
		analytics.TotalOrders++
		if order.Status != models.OrderCancelled {
			analytics.TotalRevenue += order.TotalAmount
		}
		analytics.OrdersByStatus[order.Status]++
		analytics.OrdersByType[order.OrderType]++
		analytics.OrdersByHour[order.CreatedAt.Hour()]++
	}
	if analytics.TotalOrders > 0 {
		analytics.AverageOrderValue = analytics.TotalRevenue / float64(analytics.TotalOrders)
	}

	top, err := as.TopSellingItems(identity, start, end, 10)
	if err != nil {
		return nil, err
	}
	analytics.TopSellingItems = top

	return analytics, nil
}

// TopSellingItems ranks menu items by quantity sold inside the window.
func (as *AnalyticsService) TopSellingItems(identity models.Identity, start, end time.Time, limit int) ([]PopularItem, error) {
	businessID, err := as.scope(identity)
	if err != nil {
		return nil, err
	}

	query := as.DB.Model(&models.OrderItem{}).
		Select("order_items.menu_item_id as menu_item_id, menu_items.name as name, "+
			"SUM(order_items.quantity) as quantity_sold, SUM(order_items.total_price) as revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN menu_items ON menu_items.id = order_items.menu_item_id").
		Where("orders.created_at >= ? AND orders.created_at < ?", start, end).
		Group("order_items.menu_item_id, menu_items.name").
		Order("quantity_sold desc").
		Limit(limit)
	if businessID != nil {
		query = query.Where("orders.business_id = ?", *businessID)
	}

	var items []PopularItem
	if err := query.Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

type DeliveryAnalytics struct {
	TotalDeliveries    int64   `json:"total_deliveries"`
	Delivered          int64   `json:"delivered"`
	Failed             int64   `json:"failed"`
	SuccessRatePercent float64 `json:"success_rate_percent"`
	AverageMinutes     float64 `json:"average_minutes"`
	OnlineAgents       int64   `json:"online_agents"`
	AvailableAgents    int64   `json:"available_agents"`
}

// DeliveryAnalytics aggregates dispatch outcomes of a time window.
func (as *AnalyticsService) DeliveryAnalytics(identity models.Identity, start, end time.Time) (*DeliveryAnalytics, error) {
	businessID, err := as.scope(identity)
	if err != nil {
		return nil, err
	}

	var deliveries []models.DeliveryTracking
	if err := as.scoped(as.DB, businessID).
		Where("created_at >= ? AND created_at < ?", start, end).
		Find(&deliveries).Error; err != nil {
		return nil, err
	}

	analytics := &DeliveryAnalytics{}
	var totalMinutes float64
	var timed int64
	for _, d := range deliveries {
		analytics.TotalDeliveries++
		switch d.Status {
		case models.DeliveryDelivered:
			analytics.Delivered++
		case models.DeliveryFailed:
			analytics.Failed++
		}
		if d.PickedUpAt != nil && d.DeliveredAt != nil {
			totalMinutes += d.DeliveredAt.Sub(*d.PickedUpAt).Minutes()
			timed++
		}
	}
	if analytics.TotalDeliveries > 0 {
		analytics.SuccessRatePercent = float64(analytics.Delivered) * 100 / float64(analytics.TotalDeliveries)
	}
	if timed > 0 {
		analytics.AverageMinutes = totalMinutes / float64(timed)
	}

	if err := as.scoped(as.DB.Model(&models.DeliveryAgent{}), businessID).
		Where("is_online = ?", true).Count(&analytics.OnlineAgents).Error; err != nil {
		return nil, err
	}
	if err := as.scoped(as.DB.Model(&models.DeliveryAgent{}), businessID).
		Where("is_online = ? AND is_available = ?", true, true).
		Count(&analytics.AvailableAgents).Error; err != nil {
		return nil, err
	}

	return analytics, nil
}

// scope resolves the tenant filter for analytics reads. Admin reads across
// all businesses; a caller with no tenant gets nothing.
func (as *AnalyticsService) scope(identity models.Identity) (*uint, error) {
	businessID, err := as.Tenant.ResolveTenant(identity)
	if err != nil {
		return nil, err
	}
	if businessID == nil && identity.Role != models.RoleAdmin {
		return nil, ErrAccessDenied
	}
	return businessID, nil
}

func (as *AnalyticsService) scoped(query *gorm.DB, businessID *uint) *gorm.DB {
	if businessID != nil {
		return query.Where("business_id = ?", *businessID)
	}
	return query
}

// ordersBetween counts orders and sums non-cancelled revenue in a window.
func (as *AnalyticsService) ordersBetween(businessID *uint, start, end time.Time) (int64, float64, error) {
	var count int64
	if err := as.scoped(as.DB.Model(&models.Order{}), businessID).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error; err != nil {
		return 0, 0, err
	}

	var revenue *float64
	if err := as.scoped(as.DB.Model(&models.Order{}), businessID).
		Where("created_at >= ? AND created_at < ? AND status != ?", start, end, models.OrderCancelled).
		Select("SUM(total_amount)").Scan(&revenue).Error; err != nil {
		return 0, 0, err
	}
	if revenue == nil {
		return count, 0, nil
	}
	return count, *revenue, nil
}
