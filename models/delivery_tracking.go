package models

import "time"

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryAssigned  DeliveryStatus = "assigned"
	DeliveryPickedUp  DeliveryStatus = "picked_up"
	DeliveryInTransit DeliveryStatus = "in_transit"
	DeliveryArrived   DeliveryStatus = "arrived"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryCancelled DeliveryStatus = "cancelled"
	DeliveryFailed    DeliveryStatus = "failed"
)

// deliveryTransitions encodes the courier handoff lifecycle. Cancelled and
// failed are reachable from every non-terminal state.
var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryPending:   {DeliveryAssigned},
	DeliveryAssigned:  {DeliveryPickedUp},
	DeliveryPickedUp:  {DeliveryInTransit},
	DeliveryInTransit: {DeliveryArrived, DeliveryDelivered},
	DeliveryArrived:   {DeliveryDelivered},
}

func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryDelivered || s == DeliveryCancelled || s == DeliveryFailed
}

// CanTransitionTo reports whether s -> next is a legal move.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	if next == DeliveryCancelled || next == DeliveryFailed {
		return !s.IsTerminal()
	}
	for _, allowed := range deliveryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DeliveryTracking is the single dispatch record of an order. One row per
// order; creating a second one for the same order is rejected.
type DeliveryTracking struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	BusinessID           uint           `gorm:"index;not null" json:"business_id"`
	OrderID              uint           `gorm:"uniqueIndex;not null" json:"order_id"`
	Order                Order          `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	AgentID              *uint          `gorm:"index" json:"agent_id,omitempty"`
	Agent                *DeliveryAgent `gorm:"foreignKey:AgentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"agent,omitempty"`
	Status               DeliveryStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PickupLatitude       *float64       `json:"pickup_latitude,omitempty"`
	PickupLongitude      *float64       `json:"pickup_longitude,omitempty"`
	DeliveryLatitude     *float64       `json:"delivery_latitude,omitempty"`
	DeliveryLongitude    *float64       `json:"delivery_longitude,omitempty"`
	CurrentLatitude      *float64       `json:"current_latitude,omitempty"`
	CurrentLongitude     *float64       `json:"current_longitude,omitempty"`
	AssignedAt           *time.Time     `json:"assigned_at,omitempty"`
	PickedUpAt           *time.Time     `json:"picked_up_at,omitempty"`
	DeliveredAt          *time.Time     `json:"delivered_at,omitempty"`
	EstimatedTimeMinutes int            `gorm:"not null;default:30" json:"estimated_time_minutes"`
	Rating               *float64       `json:"rating,omitempty"`
	CreatedAt            time.Time      `gorm:"index;not null" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null" json:"updated_at"`
}
