package models

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleWorker  Role = "worker"
	RoleNormal  Role = "normal"
)

// IsStaff reports whether the role maps to a tenant through the workers table.
func (r Role) IsStaff() bool {
	return r == RoleWorker || r == RoleManager
}

type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"type:varchar(255);not null" json:"name"`
	Email     string `gorm:"type:varchar(255);unique;not null" json:"email"`
	Password  string `gorm:"type:varchar(255);not null" json:"-"`
	Role      Role   `gorm:"type:varchar(20);not null;default:'normal'" json:"role"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Worker links a staff account to the owner account it works for.
// The owner's user id is the business id for everything the staff member touches.
type Worker struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	UserID    uint  `gorm:"uniqueIndex;not null" json:"user_id"`
	User      User  `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	OwnerID   *uint `gorm:"index" json:"owner_id"`
	Owner     *User `gorm:"foreignKey:OwnerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity is the already-authenticated caller as handed over by the auth layer.
// The core never issues or verifies credentials itself.
type Identity struct {
	UserID uint `json:"user_id"`
	Role   Role `json:"role"`
}
