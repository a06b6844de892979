package models

import "time"

type OrderItem struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	OrderID    uint     `gorm:"index;not null" json:"order_id"`
	MenuItemID uint     `gorm:"not null" json:"menu_item_id"`
	MenuItem   MenuItem `gorm:"foreignKey:MenuItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"menu_item"`
	Quantity   int      `gorm:"not null" json:"quantity"`
	// UnitPrice is copied from the menu item when the order is placed; later
	// price changes never alter an existing order.
	UnitPrice  float64   `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	TotalPrice float64   `gorm:"type:decimal(10,2);not null" json:"total_price"`
	Notes      string    `gorm:"type:text" json:"notes"`
	Status     string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}
