package models

import "time"

// QRCode binds an opaque scan token to one table of one business. The token is
// a bearer secret: whoever holds it can open a guest session against that table.
type QRCode struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	BusinessID    uint       `gorm:"index:idx_qr_business_table,unique;not null" json:"business_id"`
	TableID       uint       `gorm:"index:idx_qr_business_table,unique;not null" json:"table_id"`
	Token         string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"token"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`
	ScanCount     int        `gorm:"not null;default:0" json:"scan_count"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}
