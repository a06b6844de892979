package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tablelink/restaurant-ops/events"
	"github.com/tablelink/restaurant-ops/middlewares"
	"github.com/tablelink/restaurant-ops/models"
	"github.com/tablelink/restaurant-ops/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type DashboardWSController struct {
	Tenant *services.TenantService
}

func NewDashboardWSController(tenant *services.TenantService) *DashboardWSController {
	return &DashboardWSController{Tenant: tenant}
}

// Handle upgrades a staff dashboard to a websocket. The connection is scoped
// to the caller's business, so a client only ever sees its own tenant's
// events. Admins must pass ?business_id= to pick a feed.
func (wc *DashboardWSController) Handle(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if identity.Role == models.RoleNormal {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	businessID, err := wc.Tenant.ResolveTenant(identity)
	if err != nil {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	if businessID == nil {
		var query struct {
			BusinessID uint `form:"business_id" binding:"required"`
		}
		if err := c.ShouldBindQuery(&query); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		businessID = &query.BusinessID
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	events.RegisterClient(ws, *businessID)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	events.UnregisterClient(ws)
}
