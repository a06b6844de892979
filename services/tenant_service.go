package services

import (
	"errors"

	"github.com/tablelink/restaurant-ops/models"
	"github.com/tablelink/restaurant-ops/utils"
	"gorm.io/gorm"
)

// TenantService derives the acting business id from an authenticated identity
// and is the single choke point for owner/staff access checks.
//
// Role -> business id:
//   - admin:           nil (all businesses)
//   - owner:           the owner's own user id
//   - worker/manager:  the owning account's id from the workers table
//   - normal:          nil (no business access; callers branch on the role)
type TenantService struct {
	DB *gorm.DB
}

func NewTenantService(db *gorm.DB) *TenantService {
	return &TenantService{DB: db}
}

// ResolveTenant returns the business id the identity acts for. nil is returned
// for admin (all tenants) and for normal customers (no tenant); the two cases
// are distinguished by the role, never by the value alone.
func (ts *TenantService) ResolveTenant(identity models.Identity) (*uint, error) {
	switch {
	case identity.Role == models.RoleAdmin:
		return nil, nil
	case identity.Role == models.RoleOwner:
		id := identity.UserID
		return &id, nil
	case identity.Role.IsStaff():
		var worker models.Worker
		if err := ts.DB.Where("user_id = ?", identity.UserID).First(&worker).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// A staff account with no worker row must not fall through
				// to admin-like visibility.
				return nil, ErrTenantResolution
			}
			return nil, err
		}
		if worker.OwnerID == nil {
			utils.ErrorLogger.Printf("worker %d has no owning account", identity.UserID)
			return nil, ErrTenantResolution
		}
		return worker.OwnerID, nil
	case identity.Role == models.RoleNormal:
		return nil, nil
	default:
		return nil, ErrTenantResolution
	}
}

// ValidateAccess fails unless the identity may touch a record owned by
// resourceBusinessID. Admin passes unconditionally.
func (ts *TenantService) ValidateAccess(identity models.Identity, resourceBusinessID uint) error {
	if identity.Role == models.RoleAdmin {
		return nil
	}

	businessID, err := ts.ResolveTenant(identity)
	if err != nil {
		return err
	}
	if businessID == nil || *businessID != resourceBusinessID {
		utils.ErrorLogger.Printf("access denied: user %d (%s) on business %d",
			identity.UserID, identity.Role, resourceBusinessID)
		return ErrAccessDenied
	}
	return nil
}
