package router

import (
	"github.com/gin-gonic/gin"
	"github.com/tablelink/restaurant-ops/controllers"
	"github.com/tablelink/restaurant-ops/middlewares"
	"github.com/tablelink/restaurant-ops/services"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.CORSMiddleware())
	r.Use(middlewares.RequestLogger())
	// Registered before any route: gin snapshots the handler chain per route,
	// so middleware added after registration never runs.
	r.Use(middlewares.NewRateLimiter(50, 1).RateLimit())

	tenantSvc := services.NewTenantService(db)
	qrSvc := services.NewQRService(db, tenantSvc)
	orderSvc := services.NewOrderService(db, tenantSvc)
	guestSvc := services.NewGuestService(db, qrSvc, orderSvc)
	deliverySvc := services.NewDeliveryService(db, tenantSvc)
	analyticsSvc := services.NewAnalyticsService(db, tenantSvc)

	qrCtrl := controllers.NewQRController(qrSvc)
	guestCtrl := controllers.NewGuestController(guestSvc)
	orderCtrl := controllers.NewOrderController(orderSvc, tenantSvc)
	deliveryCtrl := controllers.NewDeliveryController(deliverySvc)
	analyticsCtrl := controllers.NewAnalyticsController(analyticsSvc)
	tableCtrl := controllers.NewTableController(db, tenantSvc)
	menuCtrl := controllers.NewMenuController(db, tenantSvc)
	wsCtrl := controllers.NewDashboardWSController(tenantSvc)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// ----------------------------------------------------------------
	//                      GUEST ROUTES (no auth)
	// ----------------------------------------------------------------
	// The QR scan is rate limited hard; everything after it rides the
	// session token from the scan response.
	guest := r.Group("/guest")
	{
		scan := guest.Group("/")
		scan.Use(middlewares.NewStrictRateLimiter())
		scan.GET("/scan/:token", guestCtrl.Scan)

		guest.GET("/menu", guestCtrl.Menu)
		guest.POST("/orders", guestCtrl.PlaceOrder)
		guest.GET("/orders", guestCtrl.ListOrders)
		guest.GET("/orders/:order_id", guestCtrl.GetOrder)
		guest.POST("/session/complete", guestCtrl.Complete)
	}

	// ----------------------------------------------------------------
	//                      STAFF / OWNER ROUTES
	// ----------------------------------------------------------------
	staff := r.Group("/api")
	staff.Use(middlewares.AuthMiddleware())
	{
		// TABLES
		staff.POST("/tables", tableCtrl.Create)
		staff.GET("/tables", tableCtrl.List)
		staff.GET("/tables/:table_id", tableCtrl.Get)
		staff.PATCH("/tables/:table_id", tableCtrl.Update)
		staff.DELETE("/tables/:table_id", tableCtrl.Delete)

		// QR CODES
		staff.POST("/tables/:table_id/qr", qrCtrl.IssueForTable)
		staff.POST("/qr-codes/issue-all", qrCtrl.IssueForAllTables)
		staff.GET("/qr-codes", qrCtrl.List)
		staff.PATCH("/qr-codes/:qr_id/deactivate", qrCtrl.Deactivate)
		staff.PATCH("/qr-codes/:qr_id/reactivate", qrCtrl.Reactivate)
		staff.DELETE("/qr-codes/:qr_id", qrCtrl.Delete)

		// MENU
		staff.POST("/categories", menuCtrl.CreateCategory)
		staff.GET("/categories", menuCtrl.ListCategories)
		staff.POST("/menus", menuCtrl.CreateItem)
		staff.GET("/menus", menuCtrl.ListItems)
		staff.PATCH("/menus/:item_id", menuCtrl.UpdateItem)
		staff.DELETE("/menus/:item_id", menuCtrl.DeleteItem)

		// ORDERS
		staff.GET("/orders", orderCtrl.List)
		staff.GET("/orders/active", orderCtrl.Active)
		staff.POST("/orders", orderCtrl.Create)
		staff.GET("/orders/:order_id", orderCtrl.Get)
		staff.GET("/orders/number/:order_number", orderCtrl.GetByNumber)
		staff.PATCH("/orders/:order_id/status", orderCtrl.UpdateStatus)
		staff.POST("/orders/:order_id/cancel", orderCtrl.Cancel)

		// DELIVERY AGENTS
		staff.POST("/delivery/agents", deliveryCtrl.CreateAgent)
		staff.GET("/delivery/agents/available", deliveryCtrl.AvailableAgents)
		staff.PATCH("/delivery/agents/:agent_id/status", deliveryCtrl.UpdateAgentStatus)
		staff.PATCH("/delivery/agents/:agent_id/location", deliveryCtrl.UpdateAgentLocation)
		staff.GET("/delivery/agents/:agent_id/deliveries", deliveryCtrl.AgentDeliveries)

		// DELIVERY TRACKING
		staff.POST("/delivery/trackings", deliveryCtrl.CreateTracking)
		staff.GET("/delivery/trackings/active", deliveryCtrl.Active)
		staff.POST("/delivery/trackings/:tracking_id/assign", deliveryCtrl.Assign)
		staff.POST("/delivery/trackings/:tracking_id/auto-assign", deliveryCtrl.AutoAssign)
		staff.PATCH("/delivery/trackings/:tracking_id/status", deliveryCtrl.UpdateStatus)
		staff.PATCH("/delivery/trackings/:tracking_id/location", deliveryCtrl.UpdateLocation)
		staff.GET("/delivery/orders/:order_id", deliveryCtrl.GetByOrder)

		// ANALYTICS
		staff.GET("/analytics/dashboard", analyticsCtrl.Dashboard)
		staff.GET("/analytics/orders", analyticsCtrl.Orders)
		staff.GET("/analytics/top-items", analyticsCtrl.TopItems)
		staff.GET("/analytics/deliveries", analyticsCtrl.Deliveries)

		// Realtime dashboard feed
		staff.GET("/ws", wsCtrl.Handle)
	}

	return r
}
