package models

import "time"

type MenuItem struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	BusinessID  uint         `gorm:"index;not null" json:"business_id"`
	CategoryID  uint         `gorm:"index;not null" json:"category_id"`
	Category    MenuCategory `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"category"`
	Name        string       `gorm:"type:varchar(255);not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	Price       float64      `gorm:"type:decimal(10,2);not null" json:"price"`
	ImageUrl    *string      `gorm:"type:varchar(255)" json:"image_url,omitempty"`
	IsAvailable bool         `gorm:"not null;default:true" json:"is_available"`
	// TotalOrders is bumped inside the order-creation transaction and feeds
	// the popularity ranking in analytics.
	TotalOrders int       `gorm:"not null;default:0" json:"total_orders"`
	Rating      float64   `gorm:"not null;default:0" json:"rating"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}
