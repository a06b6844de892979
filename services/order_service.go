package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tablelink/restaurant-ops/models"
	"github.com/tablelink/restaurant-ops/utils"
	"gorm.io/gorm"
)

// taxRate is applied to the subtotal of every order.
const taxRate = 0.05

// OrderService owns order creation, pricing and the order status machine.
// Everything an order creation touches (header, lines, menu counters, table
// flag) commits in one transaction, so a failure leaves nothing behind.
type OrderService struct {
	DB     *gorm.DB
	Tenant *TenantService
}

func NewOrderService(db *gorm.DB, tenant *TenantService) *OrderService {
	return &OrderService{DB: db, Tenant: tenant}
}

type OrderItemRequest struct {
	MenuItemID uint   `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
	Notes      string `json:"notes"`
}

// OrderPlacement describes who the order is for. Guest orders arrive with a
// nil UserID and the table taken from the guest session.
type OrderPlacement struct {
	UserID        *uint
	TableID       *uint
	CustomerName  string
	CustomerPhone string
	OrderType     models.OrderType
	Discount      float64
	Notes         string
}

// CreateOrder prices and persists an order for the given business. Every
// referenced menu item must belong to that business; one mismatch aborts the
// whole creation with nothing persisted.
func (s *OrderService) CreateOrder(businessID uint, placement OrderPlacement, items []OrderItemRequest) (*models.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	if placement.OrderType == "" {
		placement.OrderType = models.OrderTypeDineIn
	}

	var order models.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		type pricedLine struct {
			menuItem models.MenuItem
			req      OrderItemRequest
			total    float64
		}

		var subtotal float64
		lines := make([]pricedLine, 0, len(items))
		for _, req := range items {
			var menuItem models.MenuItem
			if err := tx.First(&menuItem, req.MenuItemID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			// The boundary that stops id-guessing across tenants.
			if menuItem.BusinessID != businessID {
				return ErrCrossTenant
			}
			lineTotal := menuItem.Price * float64(req.Quantity)
			subtotal += lineTotal
			lines = append(lines, pricedLine{menuItem: menuItem, req: req, total: lineTotal})
		}

		orderNumber, err := s.generateOrderNumber(tx)
		if err != nil {
			return err
		}

		tax := subtotal * taxRate
		order = models.Order{
			BusinessID:    businessID,
			OrderNumber:   orderNumber,
			UserID:        placement.UserID,
			TableID:       placement.TableID,
			CustomerName:  placement.CustomerName,
			CustomerPhone: placement.CustomerPhone,
			OrderType:     placement.OrderType,
			Status:        models.OrderPending,
			Subtotal:      subtotal,
			Tax:           tax,
			Discount:      placement.Discount,
			TotalAmount:   subtotal + tax - placement.Discount,
			Notes:         placement.Notes,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, line := range lines {
			orderItem := models.OrderItem{
				OrderID:    order.ID,
				MenuItemID: line.menuItem.ID,
				Quantity:   line.req.Quantity,
				UnitPrice:  line.menuItem.Price,
				TotalPrice: line.total,
				Notes:      line.req.Notes,
				Status:     "pending",
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return err
			}
			order.Items = append(order.Items, orderItem)

			// Popularity counter, consistent with the lines just written.
			if err := tx.Model(&models.MenuItem{}).Where("id = ?", line.menuItem.ID).
				UpdateColumn("total_orders", gorm.Expr("total_orders + ?", line.req.Quantity)).
				Error; err != nil {
				return err
			}
		}

		if placement.TableID != nil {
			if err := tx.Model(&models.Table{}).Where("id = ?", *placement.TableID).
				Update("is_available", false).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("order %s created for business %d (total %.2f)",
		order.OrderNumber, order.BusinessID, order.TotalAmount)
	return &order, nil
}

// UpdateStatus advances an order along the status machine. Illegal moves are
// rejected; completion and cancellation of a dine-in order free its table in
// the same transaction, otherwise the table would starve forever.
func (s *OrderService) UpdateStatus(identity models.Identity, orderID uint, newStatus models.OrderStatus) (*models.Order, error) {
	var order models.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := s.Tenant.ValidateAccess(identity, order.BusinessID); err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(newStatus) {
			return ErrInvalidTransition
		}

		order.Status = newStatus
		if newStatus == models.OrderCompleted || newStatus == models.OrderDelivered {
			now := time.Now()
			order.CompletedAt = &now
		}
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		if (newStatus == models.OrderCompleted || newStatus == models.OrderCancelled) && order.TableID != nil {
			if err := tx.Model(&models.Table{}).Where("id = ?", *order.TableID).
				Update("is_available", true).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("order %d -> %s", order.ID, order.Status)
	return &order, nil
}

// Cancel aborts an order from any non-terminal state.
func (s *OrderService) Cancel(identity models.Identity, orderID uint) (*models.Order, error) {
	return s.UpdateStatus(identity, orderID, models.OrderCancelled)
}

// GetByID returns one order with its lines, access-checked.
func (s *OrderService) GetByID(identity models.Identity, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.DB.Preload("Items").Preload("Items.MenuItem").
		First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.Tenant.ValidateAccess(identity, order.BusinessID); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByNumber returns one order by its order number, access-checked.
func (s *OrderService) GetByNumber(identity models.Identity, orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := s.DB.Preload("Items").
		Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.Tenant.ValidateAccess(identity, order.BusinessID); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListForIdentity returns the orders of the caller's business, optionally
// filtered by status. Admin sees every business.
func (s *OrderService) ListForIdentity(identity models.Identity, status models.OrderStatus) ([]models.Order, error) {
	businessID, err := s.Tenant.ResolveTenant(identity)
	if err != nil {
		return nil, err
	}

	query := s.DB.Preload("Items").Order("created_at desc")
	if identity.Role != models.RoleAdmin {
		if businessID == nil {
			return nil, ErrAccessDenied
		}
		query = query.Where("business_id = ?", *businessID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ActiveOrders returns every order of the business that is not yet terminal.
func (s *OrderService) ActiveOrders(identity models.Identity) ([]models.Order, error) {
	businessID, err := s.Tenant.ResolveTenant(identity)
	if err != nil {
		return nil, err
	}
	if businessID == nil && identity.Role != models.RoleAdmin {
		return nil, ErrAccessDenied
	}

	query := s.DB.Preload("Items").
		Where("status NOT IN ?", []models.OrderStatus{models.OrderCompleted, models.OrderCancelled}).
		Order("created_at asc")
	if businessID != nil {
		query = query.Where("business_id = ?", *businessID)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// generateOrderNumber builds a sortable, timestamp-derived order number. On
// the rare same-second collision a random suffix is appended.
func (s *OrderService) generateOrderNumber(tx *gorm.DB) (string, error) {
	candidate := "ORD-" + time.Now().Format("20060102150405")
	var count int64
	if err := tx.Model(&models.Order{}).Where("order_number = ?", candidate).
		Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return candidate, nil
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%s", candidate, suffix), nil
}
