package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tablelink/restaurant-ops/models"
)

func TestResolveTenantByRole(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTenantService(db)

	owner := models.User{Name: "Owner", Email: "owner@resolve.test", Password: "secret", Role: models.RoleOwner}
	assert.NoError(t, db.Create(&owner).Error)

	staff := models.User{Name: "Waiter", Email: "waiter@resolve.test", Password: "secret", Role: models.RoleWorker}
	assert.NoError(t, db.Create(&staff).Error)
	assert.NoError(t, db.Create(&models.Worker{UserID: staff.ID, OwnerID: &owner.ID}).Error)

	// Admin resolves to nil: all businesses.
	businessID, err := svc.ResolveTenant(models.Identity{UserID: 99, Role: models.RoleAdmin})
	assert.NoError(t, err)
	assert.Nil(t, businessID)

	// Owner resolves to its own account id.
	businessID, err = svc.ResolveTenant(models.Identity{UserID: owner.ID, Role: models.RoleOwner})
	assert.NoError(t, err)
	if assert.NotNil(t, businessID) {
		assert.Equal(t, owner.ID, *businessID)
	}

	// Staff resolves through the workers table to the owning account.
	businessID, err = svc.ResolveTenant(models.Identity{UserID: staff.ID, Role: models.RoleWorker})
	assert.NoError(t, err)
	if assert.NotNil(t, businessID) {
		assert.Equal(t, owner.ID, *businessID)
	}

	// Normal customers have no business access; nil with no error.
	businessID, err = svc.ResolveTenant(models.Identity{UserID: 7, Role: models.RoleNormal})
	assert.NoError(t, err)
	assert.Nil(t, businessID)
}

func TestResolveTenantStaffWithoutWorkerRow(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTenantService(db)

	// A staff account with no worker row must fail loudly, not fall through
	// to admin-like visibility.
	_, err := svc.ResolveTenant(models.Identity{UserID: 42, Role: models.RoleManager})
	assert.ErrorIs(t, err, ErrTenantResolution)
}

func TestResolveTenantStaffWithoutOwner(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTenantService(db)

	staff := models.User{Name: "Orphan", Email: "orphan@resolve.test", Password: "secret", Role: models.RoleWorker}
	assert.NoError(t, db.Create(&staff).Error)
	assert.NoError(t, db.Create(&models.Worker{UserID: staff.ID, OwnerID: nil}).Error)

	_, err := svc.ResolveTenant(models.Identity{UserID: staff.ID, Role: models.RoleWorker})
	assert.ErrorIs(t, err, ErrTenantResolution)
}

func TestValidateAccess(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTenantService(db)

	owner := models.User{Name: "Owner", Email: "owner@access.test", Password: "secret", Role: models.RoleOwner}
	assert.NoError(t, db.Create(&owner).Error)
	rival := models.User{Name: "Rival", Email: "rival@access.test", Password: "secret", Role: models.RoleOwner}
	assert.NoError(t, db.Create(&rival).Error)

	staff := models.User{Name: "Waiter", Email: "waiter@access.test", Password: "secret", Role: models.RoleWorker}
	assert.NoError(t, db.Create(&staff).Error)
	assert.NoError(t, db.Create(&models.Worker{UserID: staff.ID, OwnerID: &owner.ID}).Error)

	// Admin touches anything.
	assert.NoError(t, svc.ValidateAccess(models.Identity{UserID: 1, Role: models.RoleAdmin}, owner.ID))

	// Owner touches its own business only.
	assert.NoError(t, svc.ValidateAccess(models.Identity{UserID: owner.ID, Role: models.RoleOwner}, owner.ID))
	err := svc.ValidateAccess(models.Identity{UserID: rival.ID, Role: models.RoleOwner}, owner.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	// Staff acts for the owning account's business.
	assert.NoError(t, svc.ValidateAccess(models.Identity{UserID: staff.ID, Role: models.RoleWorker}, owner.ID))
	err = svc.ValidateAccess(models.Identity{UserID: staff.ID, Role: models.RoleWorker}, rival.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	// Normal customers never pass.
	err = svc.ValidateAccess(models.Identity{UserID: 7, Role: models.RoleNormal}, owner.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}
