package services

import (
	"errors"
	"time"

	"github.com/tablelink/restaurant-ops/models"
	"github.com/tablelink/restaurant-ops/utils"
	"gorm.io/gorm"
)

// QRService issues and resolves the per-table scan tokens that open the
// contactless ordering path.
type QRService struct {
	DB     *gorm.DB
	Tenant *TenantService
}

func NewQRService(db *gorm.DB, tenant *TenantService) *QRService {
	return &QRService{DB: db, Tenant: tenant}
}

// IssueForTable creates the QR code for a table, or returns the existing one.
// One code per (business, table); issuing twice never creates a duplicate.
func (qs *QRService) IssueForTable(identity models.Identity, tableID uint) (*models.QRCode, error) {
	var table models.Table
	if err := qs.DB.First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := qs.Tenant.ValidateAccess(identity, table.BusinessID); err != nil {
		return nil, err
	}

	var existing models.QRCode
	err := qs.DB.Where("business_id = ? AND table_id = ?", table.BusinessID, tableID).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	token, err := utils.GenerateQRToken()
	if err != nil {
		return nil, err
	}

	qr := models.QRCode{
		BusinessID: table.BusinessID,
		TableID:    tableID,
		Token:      token,
		IsActive:   true,
	}
	if err := qs.DB.Create(&qr).Error; err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("QR code issued for business %d table %d", table.BusinessID, tableID)
	return &qr, nil
}

// IssueForAllTables issues codes for every table of the caller's business.
// Tables that already have one keep it.
func (qs *QRService) IssueForAllTables(identity models.Identity) ([]models.QRCode, error) {
	businessID, err := qs.Tenant.ResolveTenant(identity)
	if err != nil {
		return nil, err
	}
	if businessID == nil {
		return nil, ErrAccessDenied
	}

	var tables []models.Table
	if err := qs.DB.Where("business_id = ?", *businessID).Find(&tables).Error; err != nil {
		return nil, err
	}

	codes := make([]models.QRCode, 0, len(tables))
	for _, table := range tables {
		qr, err := qs.IssueForTable(identity, table.ID)
		if err != nil {
			utils.ErrorLogger.Printf("issuing QR for table %d: %v", table.ID, err)
			continue
		}
		codes = append(codes, *qr)
	}
	return codes, nil
}

// Scan resolves a token and records the scan. The counter update is a single
// SQL increment so concurrent scans of the same table never lose a count.
func (qs *QRService) Scan(token string) (*models.QRCode, error) {
	var qr models.QRCode
	if err := qs.DB.Where("token = ?", token).First(&qr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !qr.IsActive {
		return nil, ErrInactiveToken
	}

	now := time.Now()
	if err := qs.DB.Model(&models.QRCode{}).Where("id = ?", qr.ID).
		UpdateColumns(map[string]interface{}{
			"scan_count":      gorm.Expr("scan_count + ?", 1),
			"last_scanned_at": now,
		}).Error; err != nil {
		return nil, err
	}
	qr.ScanCount++
	qr.LastScannedAt = &now

	return &qr, nil
}

// ListByBusiness returns the QR codes visible to the identity. Admin sees all.
func (qs *QRService) ListByBusiness(identity models.Identity) ([]models.QRCode, error) {
	businessID, err := qs.Tenant.ResolveTenant(identity)
	if err != nil {
		return nil, err
	}

	var codes []models.QRCode
	query := qs.DB
	if identity.Role != models.RoleAdmin {
		if businessID == nil {
			return nil, ErrAccessDenied
		}
		query = query.Where("business_id = ?", *businessID)
	}
	if err := query.Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// SetActive flips the active flag. A deactivated code fails all scans until
// it is reactivated.
func (qs *QRService) SetActive(identity models.Identity, qrID uint, active bool) (*models.QRCode, error) {
	var qr models.QRCode
	if err := qs.DB.First(&qr, qrID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := qs.Tenant.ValidateAccess(identity, qr.BusinessID); err != nil {
		return nil, err
	}

	qr.IsActive = active
	if err := qs.DB.Save(&qr).Error; err != nil {
		return nil, err
	}
	return &qr, nil
}

// Delete removes a QR code entirely. Guests holding its token lose the entry
// point; their existing sessions stay valid until expiry.
func (qs *QRService) Delete(identity models.Identity, qrID uint) error {
	var qr models.QRCode
	if err := qs.DB.First(&qr, qrID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := qs.Tenant.ValidateAccess(identity, qr.BusinessID); err != nil {
		return err
	}
	return qs.DB.Delete(&qr).Error
}
