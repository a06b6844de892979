package models

import "time"

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderServed    OrderStatus = "served"
	OrderDelivered OrderStatus = "delivered"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// orderTransitions encodes the forward-only order lifecycle. Cancellation is
// handled separately: it is allowed from every non-terminal state.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed},
	OrderConfirmed: {OrderPreparing},
	OrderPreparing: {OrderReady},
	OrderReady:     {OrderServed, OrderDelivered},
	OrderServed:    {OrderCompleted},
	OrderDelivered: {OrderCompleted},
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// CanTransitionTo reports whether s -> next is a legal move.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if next == OrderCancelled {
		return !s.IsTerminal()
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	BusinessID    uint        `gorm:"index;not null" json:"business_id"`
	OrderNumber   string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"order_number"`
	UserID        *uint       `gorm:"index" json:"user_id,omitempty"`
	TableID       *uint       `gorm:"index" json:"table_id,omitempty"`
	Table         *Table      `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"table,omitempty"`
	CustomerName  string      `gorm:"type:varchar(100)" json:"customer_name"`
	CustomerPhone string      `gorm:"type:varchar(20)" json:"customer_phone"`
	OrderType     OrderType   `gorm:"type:varchar(20);not null;default:'dine_in'" json:"order_type"`
	Status        OrderStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Items         []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	Subtotal      float64     `gorm:"type:decimal(10,2);not null;default:0" json:"subtotal"`
	Tax           float64     `gorm:"type:decimal(10,2);not null;default:0" json:"tax"`
	Discount      float64     `gorm:"type:decimal(10,2);not null;default:0" json:"discount"`
	TotalAmount   float64     `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`
	Notes         string      `gorm:"type:text" json:"notes"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
	CreatedAt     time.Time   `gorm:"index;not null" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"not null" json:"updated_at"`
}
