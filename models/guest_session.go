package models

import "time"

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
	SessionCancelled SessionStatus = "cancelled"
)

// IsTerminal reports whether the session can never become active again.
func (s SessionStatus) IsTerminal() bool {
	return s != SessionActive
}

// GuestSession is the temporary identity a guest gets by scanning a table's QR
// code. BusinessID and TableID are copied verbatim from the QR code; that copy
// is what scopes every guest operation to the right tenant.
type GuestSession struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	BusinessID  uint          `gorm:"index;not null" json:"business_id"`
	TableID     uint          `gorm:"index;not null" json:"table_id"`
	Token       string        `gorm:"type:varchar(100);uniqueIndex;not null" json:"token"`
	Status      SessionStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	GuestName   string        `gorm:"type:varchar(100)" json:"guest_name"`
	GuestPhone  string        `gorm:"type:varchar(20)" json:"guest_phone"`
	GuestEmail  string        `gorm:"type:varchar(100)" json:"guest_email"`
	ExpiresAt   time.Time     `gorm:"index;not null" json:"expires_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

// HasExpired reports whether the session's TTL has passed at the given time.
func (gs *GuestSession) HasExpired(now time.Time) bool {
	return now.After(gs.ExpiresAt)
}
