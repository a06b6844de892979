package services

import (
	"errors"
	"time"

	"github.com/tablelink/restaurant-ops/models"
	"github.com/tablelink/restaurant-ops/utils"
	"gorm.io/gorm"
)

// DeliveryService matches couriers to orders and advances delivery handoff
// states. The agent's availability flag is the assignment mutex: it is taken
// with a conditional UPDATE, so two concurrent assigns on one agent cannot
// both succeed.
type DeliveryService struct {
	DB     *gorm.DB
	Tenant *TenantService
}

func NewDeliveryService(db *gorm.DB, tenant *TenantService) *DeliveryService {
	return &DeliveryService{DB: db, Tenant: tenant}
}

type AgentRequest struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	Email         string `json:"email"`
	VehicleType   string `json:"vehicle_type"`
	VehicleNumber string `json:"vehicle_number"`
}

// CreateAgent registers a courier under the caller's business.
func (ds *DeliveryService) CreateAgent(identity models.Identity, req AgentRequest) (*models.DeliveryAgent, error) {
	businessID, err := ds.Tenant.ResolveTenant(identity)
	if err != nil {
		return nil, err
	}
	if businessID == nil {
		return nil, ErrAccessDenied
	}

	agent := models.DeliveryAgent{
		BusinessID:    *businessID,
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		VehicleType:   req.VehicleType,
		VehicleNumber: req.VehicleNumber,
		IsAvailable:   true,
		IsOnline:      false,
	}
	if err := ds.DB.Create(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

// UpdateAgentStatus flips the online/available flags a courier reports.
func (ds *DeliveryService) UpdateAgentStatus(identity models.Identity, agentID uint, isAvailable, isOnline *bool) (*models.DeliveryAgent, error) {
	var agent models.DeliveryAgent
	if err := ds.DB.First(&agent, agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := ds.Tenant.ValidateAccess(identity, agent.BusinessID); err != nil {
		return nil, err
	}

	if isAvailable != nil {
		agent.IsAvailable = *isAvailable
	}
	if isOnline != nil {
		agent.IsOnline = *isOnline
	}
	if err := ds.DB.Save(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

// UpdateAgentLocation stores the courier's last reported position.
func (ds *DeliveryService) UpdateAgentLocation(identity models.Identity, agentID uint, lat, lng float64) (*models.DeliveryAgent, error) {
	var agent models.DeliveryAgent
	if err := ds.DB.First(&agent, agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := ds.Tenant.ValidateAccess(identity, agent.BusinessID); err != nil {
		return nil, err
	}

	agent.Latitude = &lat
	agent.Longitude = &lng
	if err := ds.DB.Save(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

// AvailableAgents lists the couriers of the caller's business that could take
// a delivery right now.
func (ds *DeliveryService) AvailableAgents(identity models.Identity) ([]models.DeliveryAgent, error) {
	businessID, err := ds.Tenant.ResolveTenant(identity)
	if err != nil {
		return nil, err
	}
	if businessID == nil {
		return nil, ErrAccessDenied
	}

	var agents []models.DeliveryAgent
	if err := ds.DB.Where("business_id = ? AND is_available = ? AND is_online = ?",
		*businessID, true, true).Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

type TrackingRequest struct {
	OrderID           uint     `json:"order_id" binding:"required"`
	PickupLatitude    *float64 `json:"pickup_latitude"`
	PickupLongitude   *float64 `json:"pickup_longitude"`
	DeliveryLatitude  *float64 `json:"delivery_latitude"`
	DeliveryLongitude *float64 `json:"delivery_longitude"`
}

// CreateTracking opens the single dispatch record of an order.
func (ds *DeliveryService) CreateTracking(identity models.Identity, req TrackingRequest) (*models.DeliveryTracking, error) {
	var order models.Order
	if err := ds.DB.First(&order, req.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := ds.Tenant.ValidateAccess(identity, order.BusinessID); err != nil {
		return nil, err
	}

	tracking := models.DeliveryTracking{
		BusinessID:        order.BusinessID,
		OrderID:           order.ID,
		Status:            models.DeliveryPending,
		PickupLatitude:    req.PickupLatitude,
		PickupLongitude:   req.PickupLongitude,
		DeliveryLatitude:  req.DeliveryLatitude,
		DeliveryLongitude: req.DeliveryLongitude,
	}
	// The unique index on order_id is the one-row guarantee; a lost race
	// surfaces as a duplicate key, not as a second tracking.
	if err := ds.DB.Create(&tracking).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTrackingExists
		}
		return nil, err
	}
	return &tracking, nil
}

// Assign gives a delivery to a specific agent. Taking the agent is a
// compare-and-set on its availability flags; losing the race surfaces as
// ErrAgentUnavailable, never as a double assignment.
func (ds *DeliveryService) Assign(identity models.Identity, trackingID, agentID uint) (*models.DeliveryTracking, error) {
	var tracking models.DeliveryTracking
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&tracking, trackingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := ds.Tenant.ValidateAccess(identity, tracking.BusinessID); err != nil {
			return err
		}
		if !tracking.Status.CanTransitionTo(models.DeliveryAssigned) {
			return ErrInvalidTransition
		}

		var agent models.DeliveryAgent
		if err := tx.First(&agent, agentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if agent.BusinessID != tracking.BusinessID {
			return ErrCrossTenant
		}

		taken := tx.Model(&models.DeliveryAgent{}).
			Where("id = ? AND is_available = ? AND is_online = ?", agentID, true, true).
			Update("is_available", false)
		if taken.Error != nil {
			return taken.Error
		}
		if taken.RowsAffected == 0 {
			return ErrAgentUnavailable
		}

		now := time.Now()
		tracking.AgentID = &agentID
		tracking.Status = models.DeliveryAssigned
		tracking.AssignedAt = &now
		return tx.Save(&tracking).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("delivery %d assigned to agent %d", tracking.ID, agentID)
	return &tracking, nil
}

// AutoAssign picks the online, available agent with the fewest deliveries,
// ties broken by agent id. A greedy heuristic, not an optimal assignment.
func (ds *DeliveryService) AutoAssign(identity models.Identity, trackingID uint) (*models.DeliveryTracking, error) {
	var tracking models.DeliveryTracking
	if err := ds.DB.First(&tracking, trackingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := ds.Tenant.ValidateAccess(identity, tracking.BusinessID); err != nil {
		return nil, err
	}

	var agent models.DeliveryAgent
	err := ds.DB.Where("business_id = ? AND is_available = ? AND is_online = ?",
		tracking.BusinessID, true, true).
		Order("total_deliveries asc, id asc").
		First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoAgentsAvailable
		}
		return nil, err
	}

	return ds.Assign(identity, trackingID, agent.ID)
}

// AdvanceStatus moves a delivery along the handoff machine. Delivered frees
// the agent, bumps its delivery count and propagates the order status, all in
// one transaction; cancelled/failed also free the agent.
func (ds *DeliveryService) AdvanceStatus(identity models.Identity, trackingID uint, newStatus models.DeliveryStatus) (*models.DeliveryTracking, error) {
	var tracking models.DeliveryTracking
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&tracking, trackingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := ds.Tenant.ValidateAccess(identity, tracking.BusinessID); err != nil {
			return err
		}
		if !tracking.Status.CanTransitionTo(newStatus) {
			return ErrInvalidTransition
		}

		now := time.Now()
		tracking.Status = newStatus

		switch newStatus {
		case models.DeliveryPickedUp:
			tracking.PickedUpAt = &now
		case models.DeliveryDelivered:
			tracking.DeliveredAt = &now
			if tracking.AgentID != nil {
				if err := tx.Model(&models.DeliveryAgent{}).
					Where("id = ?", *tracking.AgentID).
					UpdateColumns(map[string]interface{}{
						"is_available":     true,
						"total_deliveries": gorm.Expr("total_deliveries + ?", 1),
					}).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&models.Order{}).Where("id = ?", tracking.OrderID).
				UpdateColumns(map[string]interface{}{
					"status":       models.OrderDelivered,
					"completed_at": now,
				}).Error; err != nil {
				return err
			}
		case models.DeliveryCancelled, models.DeliveryFailed:
			if tracking.AgentID != nil {
				if err := tx.Model(&models.DeliveryAgent{}).
					Where("id = ?", *tracking.AgentID).
					Update("is_available", true).Error; err != nil {
					return err
				}
			}
		}

		return tx.Save(&tracking).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("delivery %d -> %s", tracking.ID, tracking.Status)
	return &tracking, nil
}

// UpdateCurrentLocation stores the courier's position on the tracking record
// and mirrors it onto the agent.
func (ds *DeliveryService) UpdateCurrentLocation(identity models.Identity, trackingID uint, lat, lng float64) (*models.DeliveryTracking, error) {
	var tracking models.DeliveryTracking
	if err := ds.DB.First(&tracking, trackingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := ds.Tenant.ValidateAccess(identity, tracking.BusinessID); err != nil {
		return nil, err
	}

	tracking.CurrentLatitude = &lat
	tracking.CurrentLongitude = &lng
	if err := ds.DB.Save(&tracking).Error; err != nil {
		return nil, err
	}

	if tracking.AgentID != nil {
		if err := ds.DB.Model(&models.DeliveryAgent{}).Where("id = ?", *tracking.AgentID).
			UpdateColumns(map[string]interface{}{
				"latitude":  lat,
				"longitude": lng,
			}).Error; err != nil {
			utils.ErrorLogger.Printf("mirroring location to agent %d: %v", *tracking.AgentID, err)
		}
	}
	return &tracking, nil
}

// GetByOrderID returns the dispatch record of an order.
func (ds *DeliveryService) GetByOrderID(identity models.Identity, orderID uint) (*models.DeliveryTracking, error) {
	var tracking models.DeliveryTracking
	if err := ds.DB.Preload("Agent").
		Where("order_id = ?", orderID).First(&tracking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := ds.Tenant.ValidateAccess(identity, tracking.BusinessID); err != nil {
		return nil, err
	}
	return &tracking, nil
}

// ActiveDeliveries lists the business's deliveries that are still under way.
func (ds *DeliveryService) ActiveDeliveries(identity models.Identity) ([]models.DeliveryTracking, error) {
	businessID, err := ds.Tenant.ResolveTenant(identity)
	if err != nil {
		return nil, err
	}
	if businessID == nil && identity.Role != models.RoleAdmin {
		return nil, ErrAccessDenied
	}

	query := ds.DB.Preload("Agent").
		Where("status NOT IN ?", []models.DeliveryStatus{
			models.DeliveryDelivered, models.DeliveryCancelled, models.DeliveryFailed,
		})
	if businessID != nil {
		query = query.Where("business_id = ?", *businessID)
	}

	var deliveries []models.DeliveryTracking
	if err := query.Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

// AgentDeliveries lists everything ever dispatched to one agent.
func (ds *DeliveryService) AgentDeliveries(identity models.Identity, agentID uint) ([]models.DeliveryTracking, error) {
	var agent models.DeliveryAgent
	if err := ds.DB.First(&agent, agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := ds.Tenant.ValidateAccess(identity, agent.BusinessID); err != nil {
		return nil, err
	}

	var deliveries []models.DeliveryTracking
	if err := ds.DB.Where("agent_id = ?", agentID).
		Order("created_at desc").Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}
