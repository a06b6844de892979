package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tablelink/restaurant-ops/models"
)

func TestIssueForTableIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQRService(db, NewTenantService(db))
	owner, table, _ := seedBusiness(t, db, "owner@qr-idem.test")

	first, err := svc.IssueForTable(owner, table.ID)
	assert.NoError(t, err)
	assert.Equal(t, table.BusinessID, first.BusinessID)
	assert.Equal(t, table.ID, first.TableID)
	assert.Len(t, first.Token, 64)
	assert.True(t, first.IsActive)

	second, err := svc.IssueForTable(owner, table.ID)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Token, second.Token)

	var count int64
	db.Model(&models.QRCode{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestIssueForTableCrossTenant(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQRService(db, NewTenantService(db))
	_, table, _ := seedBusiness(t, db, "owner@qr-cross.test")
	rival, _, _ := seedBusiness(t, db, "rival@qr-cross.test")

	_, err := svc.IssueForTable(rival, table.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestScanCountsAndStamps(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQRService(db, NewTenantService(db))
	owner, table, _ := seedBusiness(t, db, "owner@qr-scan.test")

	qr, err := svc.IssueForTable(owner, table.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, 0, qr.ScanCount)
	assert.Nil(t, qr.LastScannedAt)

	for i := 1; i <= 3; i++ {
		scanned, err := svc.Scan(qr.Token)
		assert.NoError(t, err)
		assert.EqualValues(t, i, scanned.ScanCount)
		assert.NotNil(t, scanned.LastScannedAt)
	}

	var stored models.QRCode
	assert.NoError(t, db.First(&stored, qr.ID).Error)
	assert.EqualValues(t, 3, stored.ScanCount)
}

func TestScanUnknownToken(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQRService(db, NewTenantService(db))

	_, err := svc.Scan("no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivatedTokenFailsUntilReactivated(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQRService(db, NewTenantService(db))
	owner, table, _ := seedBusiness(t, db, "owner@qr-active.test")

	qr, err := svc.IssueForTable(owner, table.ID)
	assert.NoError(t, err)

	_, err = svc.SetActive(owner, qr.ID, false)
	assert.NoError(t, err)
	_, err = svc.Scan(qr.Token)
	assert.ErrorIs(t, err, ErrInactiveToken)

	_, err = svc.SetActive(owner, qr.ID, true)
	assert.NoError(t, err)
	scanned, err := svc.Scan(qr.Token)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, scanned.ScanCount)
}

func TestIssueForAllTables(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQRService(db, NewTenantService(db))
	owner, table, _ := seedBusiness(t, db, "owner@qr-all.test")

	second := models.Table{BusinessID: table.BusinessID, TableNumber: "T2", Capacity: 2, IsAvailable: true}
	assert.NoError(t, db.Create(&second).Error)

	// T1 already has a code; the batch must keep it and only add T2's.
	existing, err := svc.IssueForTable(owner, table.ID)
	assert.NoError(t, err)

	codes, err := svc.IssueForAllTables(owner)
	assert.NoError(t, err)
	assert.Len(t, codes, 2)

	var count int64
	db.Model(&models.QRCode{}).Count(&count)
	assert.EqualValues(t, 2, count)

	for _, code := range codes {
		if code.TableID == table.ID {
			assert.Equal(t, existing.Token, code.Token)
		}
	}
}
