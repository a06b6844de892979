package services

import (
	"errors"
	"time"

	"github.com/tablelink/restaurant-ops/models"
	"github.com/tablelink/restaurant-ops/utils"
	"gorm.io/gorm"
)

// SessionTTL is how long a guest session stays usable after check-in.
const SessionTTL = 3 * time.Hour

// GuestService runs the contactless ordering path. Guests carry no
// authenticated identity; the session created from a QR scan is their only
// credential, and its business/table ids (copied from the QR code) scope every
// operation to one tenant.
type GuestService struct {
	DB     *gorm.DB
	QR     *QRService
	Orders *OrderService
}

func NewGuestService(db *gorm.DB, qr *QRService, orders *OrderService) *GuestService {
	return &GuestService{DB: db, QR: qr, Orders: orders}
}

// ScanToCheckIn turns a scanned QR token into a guest session. Scanning again
// while a session for the table is still active returns that same session, so
// a guest refreshing their phone never ends up with two conflicting sessions.
func (gs *GuestService) ScanToCheckIn(qrToken string) (*models.GuestSession, error) {
	qr, err := gs.QR.Scan(qrToken)
	if err != nil {
		return nil, err
	}

	var session models.GuestSession
	err = gs.DB.Transaction(func(tx *gorm.DB) error {
		// Lock the table row so concurrent scans of the same table
		// serialize here and exactly one of them creates the session.
		var table models.Table
		if err := lockForUpdate(tx).First(&table, qr.TableID).Error; err != nil {
			return err
		}

		now := time.Now()
		err := tx.Where("table_id = ? AND status = ? AND expires_at > ?",
			qr.TableID, models.SessionActive, now).
			First(&session).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		session = models.GuestSession{
			BusinessID: qr.BusinessID,
			TableID:    qr.TableID,
			Token:      utils.GenerateSessionToken(),
			Status:     models.SessionActive,
			ExpiresAt:  now.Add(SessionTTL),
		}
		return tx.Create(&session).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("guest session %d active for business %d table %d",
		session.ID, session.BusinessID, session.TableID)
	return &session, nil
}

// Validate resolves a session token and enforces the session lifecycle.
// An overdue session is flipped to expired here, lazily, as a side effect.
func (gs *GuestService) Validate(sessionToken string) (*models.GuestSession, error) {
	var session models.GuestSession
	if err := gs.DB.Where("token = ?", sessionToken).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	switch {
	case session.Status == models.SessionExpired:
		return nil, ErrSessionExpired
	case session.Status != models.SessionActive:
		return nil, ErrSessionNotActive
	case session.HasExpired(time.Now()):
		// Guarded on status so concurrent validators flip it only once.
		if err := gs.DB.Model(&models.GuestSession{}).
			Where("id = ? AND status = ?", session.ID, models.SessionActive).
			Update("status", models.SessionExpired).Error; err != nil {
			utils.ErrorLogger.Printf("expiring session %d: %v", session.ID, err)
		}
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// Complete closes the session when the guest pays and leaves.
func (gs *GuestService) Complete(sessionToken string) (*models.GuestSession, error) {
	var session models.GuestSession
	if err := gs.DB.Where("token = ?", sessionToken).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}

	now := time.Now()
	result := gs.DB.Model(&models.GuestSession{}).
		Where("id = ? AND status = ?", session.ID, models.SessionActive).
		Updates(map[string]interface{}{
			"status":       models.SessionCompleted,
			"completed_at": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrAlreadyTerminal
	}

	session.Status = models.SessionCompleted
	session.CompletedAt = &now
	return &session, nil
}

// MenuForGuest lists the available menu of the session's business. The
// business id comes from the session, never from the client.
func (gs *GuestService) MenuForGuest(sessionToken string) ([]models.MenuItem, error) {
	session, err := gs.Validate(sessionToken)
	if err != nil {
		return nil, err
	}

	var items []models.MenuItem
	if err := gs.DB.Preload("Category").
		Where("business_id = ? AND is_available = ?", session.BusinessID, true).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

type GuestOrderRequest struct {
	GuestName  string             `json:"guest_name" binding:"required"`
	GuestPhone string             `json:"guest_phone"`
	GuestEmail string             `json:"guest_email"`
	Notes      string             `json:"notes"`
	Items      []OrderItemRequest `json:"items" binding:"required"`
}

// PlaceGuestOrder places an order on the session's table. The order inherits
// the session's business id, which is the entire authorization mechanism on
// this path.
func (gs *GuestService) PlaceGuestOrder(sessionToken string, req GuestOrderRequest) (*models.Order, error) {
	session, err := gs.Validate(sessionToken)
	if err != nil {
		return nil, err
	}
	if req.GuestName == "" {
		return nil, ErrGuestNameRequired
	}

	tableID := session.TableID
	order, err := gs.Orders.CreateOrder(session.BusinessID, OrderPlacement{
		TableID:       &tableID,
		CustomerName:  req.GuestName,
		CustomerPhone: req.GuestPhone,
		OrderType:     models.OrderTypeDineIn,
		Notes:         req.Notes,
	}, req.Items)
	if err != nil {
		return nil, err
	}

	// First order fills in the guest's contact details on the session.
	if err := gs.DB.Model(&models.GuestSession{}).Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"guest_name":  req.GuestName,
			"guest_phone": req.GuestPhone,
			"guest_email": req.GuestEmail,
		}).Error; err != nil {
		utils.ErrorLogger.Printf("updating guest contact on session %d: %v", session.ID, err)
	}

	return order, nil
}

// OrderStatusForGuest returns one order, provided it belongs to the session's
// business and table.
func (gs *GuestService) OrderStatusForGuest(sessionToken string, orderID uint) (*models.Order, error) {
	session, err := gs.Validate(sessionToken)
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := gs.DB.Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if order.BusinessID != session.BusinessID {
		return nil, ErrAccessDenied
	}
	if order.TableID != nil && *order.TableID != session.TableID {
		return nil, ErrAccessDenied
	}
	return &order, nil
}

// GuestOrders lists the orders placed from this session's table since
// check-in.
func (gs *GuestService) GuestOrders(sessionToken string) ([]models.Order, error) {
	session, err := gs.Validate(sessionToken)
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	if err := gs.DB.Preload("Items").
		Where("business_id = ? AND table_id = ? AND created_at >= ?",
			session.BusinessID, session.TableID, session.CreatedAt).
		Order("created_at asc").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
