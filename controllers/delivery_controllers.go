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

type DeliveryController struct {
	Delivery *services.DeliveryService
}

func NewDeliveryController(delivery *services.DeliveryService) *DeliveryController {
	return &DeliveryController{Delivery: delivery}
}

// CreateAgent -> register a courier for the caller's business
func (dc *DeliveryController) CreateAgent(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	var req services.AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	agent, err := dc.Delivery.CreateAgent(identity, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Agent created", agent)
}

// UpdateAgentStatus -> courier reports online/available flags
func (dc *DeliveryController) UpdateAgentStatus(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	agentID, err := strconv.Atoi(c.Param("agent_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var req struct {
		IsAvailable *bool `json:"is_available"`
		IsOnline    *bool `json:"is_online"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	agent, err := dc.Delivery.UpdateAgentStatus(identity, uint(agentID), req.IsAvailable, req.IsOnline)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Agent updated", agent)
}

// UpdateAgentLocation -> courier position ping
func (dc *DeliveryController) UpdateAgentLocation(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	agentID, err := strconv.Atoi(c.Param("agent_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Latitude  float64 `json:"latitude" binding:"required"`
		Longitude float64 `json:"longitude" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	agent, err := dc.Delivery.UpdateAgentLocation(identity, uint(agentID), req.Latitude, req.Longitude)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Agent location updated", agent)
}

// AvailableAgents -> couriers that could take a delivery now
func (dc *DeliveryController) AvailableAgents(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	agents, err := dc.Delivery.AvailableAgents(identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Available agents", agents)
}

// CreateTracking -> open the dispatch record of an order
func (dc *DeliveryController) CreateTracking(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	var req services.TrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	tracking, err := dc.Delivery.CreateTracking(identity, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Delivery tracking created", tracking)
}

// Assign -> hand a delivery to a specific courier
func (dc *DeliveryController) Assign(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	trackingID, err := strconv.Atoi(c.Param("tracking_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var req struct {
		AgentID uint `json:"agent_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	tracking, err := dc.Delivery.Assign(identity, uint(trackingID), req.AgentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastDeliveryUpdate(*tracking)
	utils.RespondJSON(c, http.StatusOK, "Delivery assigned", tracking)
}

// AutoAssign -> least-loaded online courier takes the delivery
func (dc *DeliveryController) AutoAssign(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	trackingID, err := strconv.Atoi(c.Param("tracking_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	tracking, err := dc.Delivery.AutoAssign(identity, uint(trackingID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastDeliveryUpdate(*tracking)
	utils.RespondJSON(c, http.StatusOK, "Delivery auto-assigned", tracking)
}

// UpdateStatus -> advance the delivery along the handoff machine
func (dc *DeliveryController) UpdateStatus(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	trackingID, err := strconv.Atoi(c.Param("tracking_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Status models.DeliveryStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	tracking, err := dc.Delivery.AdvanceStatus(identity, uint(trackingID), req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastDeliveryUpdate(*tracking)
	utils.RespondJSON(c, http.StatusOK, "Delivery updated", tracking)
}

// UpdateLocation -> courier position for a live delivery
func (dc *DeliveryController) UpdateLocation(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	trackingID, err := strconv.Atoi(c.Param("tracking_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Latitude  float64 `json:"latitude" binding:"required"`
		Longitude float64 `json:"longitude" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	tracking, err := dc.Delivery.UpdateCurrentLocation(identity, uint(trackingID), req.Latitude, req.Longitude)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastDeliveryUpdate(*tracking)
	utils.RespondJSON(c, http.StatusOK, "Location updated", tracking)
}

// GetByOrder -> the dispatch record of one order
func (dc *DeliveryController) GetByOrder(c *gin.Context) {
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

	tracking, err := dc.Delivery.GetByOrderID(identity, uint(orderID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Delivery tracking", tracking)
}

// Active -> deliveries still under way
func (dc *DeliveryController) Active(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	deliveries, err := dc.Delivery.ActiveDeliveries(identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active deliveries", deliveries)
}

// AgentDeliveries -> history of one courier
func (dc *DeliveryController) AgentDeliveries(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	agentID, err := strconv.Atoi(c.Param("agent_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	deliveries, err := dc.Delivery.AgentDeliveries(identity, uint(agentID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Agent deliveries", deliveries)
}
