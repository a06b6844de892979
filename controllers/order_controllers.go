package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tablelink/restaurant-ops/events"
	"github.com/tablelink/restaurant-ops/middlewares"
	"github.com/tablelink/restaurant-ops/models"
	"github.com/tablelink/restaurant-ops/services"
	"github.com/tablelink/restaurant-ops/utils"
)

type OrderController struct {
	Orders *services.OrderService
	Tenant *services.TenantService
}

func NewOrderController(orders *services.OrderService, tenant *services.TenantService) *OrderController {
	return &OrderController{Orders: orders, Tenant: tenant}
}

// List -> orders of the caller's business, ?status= filters
func (oc *OrderController) List(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	orders, err := oc.Orders.ListForIdentity(identity, models.OrderStatus(c.Query("status")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// Active -> every non-terminal order, oldest first
func (oc *OrderController) Active(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	orders, err := oc.Orders.ActiveOrders(identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active orders", orders)
}

type createOrderRequest struct {
	TableID       *uint                       `json:"table_id"`
	CustomerName  string                      `json:"customer_name"`
	CustomerPhone string                      `json:"customer_phone"`
	OrderType     models.OrderType            `json:"order_type"`
	Discount      float64                     `json:"discount"`
	Notes         string                      `json:"notes"`
	Items         []services.OrderItemRequest `json:"items" binding:"required"`
}

// Create -> staff-placed order for the caller's business
func (oc *OrderController) Create(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	businessID, err := oc.Tenant.ResolveTenant(identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if businessID == nil {
		respondServiceError(c, services.ErrAccessDenied)
		return
	}

	userID := identity.UserID
	order, err := oc.Orders.CreateOrder(*businessID, services.OrderPlacement{
		UserID:        &userID,
		TableID:       req.TableID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		OrderType:     req.OrderType,
		Discount:      req.Discount,
		Notes:         req.Notes,
	}, req.Items)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastOrderUpdate(*order)
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// Get -> one order with its lines
func (oc *OrderController) Get(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	orderID, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.GetByID(identity, uint(orderID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// GetByNumber -> one order looked up by its printed order number
func (oc *OrderController) GetByNumber(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	order, err := oc.Orders.GetByNumber(identity, c.Param("order_number"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// UpdateStatus -> advance the order along its lifecycle
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	orderID, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.UpdateStatus(identity, uint(orderID), req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastOrderUpdate(*order)
	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

// Cancel -> abort a non-terminal order, frees its table
func (oc *OrderController) Cancel(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	orderID, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.Cancel(identity, uint(orderID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastOrderUpdate(*order)
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}
