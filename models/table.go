package models

import "time"

type Table struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BusinessID  uint      `gorm:"index;not null" json:"business_id"`
	TableNumber string    `gorm:"type:varchar(50);not null" json:"table_number"`
	TableName   string    `gorm:"type:varchar(100)" json:"table_name"`
	Capacity    int       `gorm:"not null;default:2" json:"capacity"`
	IsAvailable bool      `gorm:"not null;default:true" json:"is_available"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}
