package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tablelink/restaurant-ops/events"
	"github.com/tablelink/restaurant-ops/services"
	"github.com/tablelink/restaurant-ops/utils"
)

// sessionHeader carries the guest's only credential.
const sessionHeader = "X-Session-Token"

// GuestController is the public, unauthenticated boundary. Every operation
// here is scoped by the guest session, never by anything the client claims.
type GuestController struct {
	Guest *services.GuestService
}

func NewGuestController(guest *services.GuestService) *GuestController {
	return &GuestController{Guest: guest}
}

// Scan -> QR scan check-in, returns the (possibly reused) guest session
func (gc *GuestController) Scan(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("missing qr token"))
		return
	}

	session, err := gc.Guest.ScanToCheckIn(token)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Checked in", session)
}

// Menu -> the menu of the session's business
func (gc *GuestController) Menu(c *gin.Context) {
	items, err := gc.Guest.MenuForGuest(c.GetHeader(sessionHeader))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu", items)
}

// PlaceOrder -> guest order against the session's table
func (gc *GuestController) PlaceOrder(c *gin.Context) {
	var req services.GuestOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := gc.Guest.PlaceGuestOrder(c.GetHeader(sessionHeader), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastOrderUpdate(*order)
	utils.RespondJSON(c, http.StatusCreated, "Order placed", order)
}

// GetOrder -> status of one of the session's orders
func (gc *GuestController) GetOrder(c *gin.Context) {
	orderID, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := gc.Guest.OrderStatusForGuest(c.GetHeader(sessionHeader), uint(orderID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// ListOrders -> all orders placed from this session's table since check-in
func (gc *GuestController) ListOrders(c *gin.Context) {
	orders, err := gc.Guest.GuestOrders(c.GetHeader(sessionHeader))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Guest orders", orders)
}

// Complete -> guest pays and leaves, session closes
func (gc *GuestController) Complete(c *gin.Context) {
	session, err := gc.Guest.Complete(c.GetHeader(sessionHeader))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session completed", session)
}
