package models

import "time"

// DeliveryAgent is a courier. IsAvailable doubles as the assignment mutex:
// it is flipped to false with a conditional UPDATE when a delivery is assigned
// and back to true when the delivery reaches a terminal state.
type DeliveryAgent struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	BusinessID      uint      `gorm:"index;not null" json:"business_id"`
	Name            string    `gorm:"type:varchar(100);not null" json:"name"`
	Phone           string    `gorm:"type:varchar(20);not null" json:"phone"`
	Email           string    `gorm:"type:varchar(100)" json:"email"`
	VehicleType     string    `gorm:"type:varchar(50)" json:"vehicle_type"`
	VehicleNumber   string    `gorm:"type:varchar(50)" json:"vehicle_number"`
	IsAvailable     bool      `gorm:"not null;default:true" json:"is_available"`
	IsOnline        bool      `gorm:"not null;default:false" json:"is_online"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	Rating          float64   `gorm:"not null;default:0" json:"rating"`
	TotalDeliveries int       `gorm:"not null;default:0" json:"total_deliveries"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}
