package events

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tablelink/restaurant-ops/models"
	"github.com/tablelink/restaurant-ops/utils"
)

// Event types pushed to staff dashboards.
const (
	EventOrderUpdate     = "order_update"
	EventDeliveryUpdate  = "delivery_update"
	EventTableUpdate     = "table_update"
	EventDashboardUpdate = "dashboard_update"
	EventStaffNotif      = "staff_notification"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub keeps the open dashboard connections of each business so updates only
// reach the tenant they belong to.
type Hub struct {
	clients map[*websocket.Conn]uint // conn -> business id
	mutex   sync.Mutex
}

var hub = Hub{
	clients: make(map[*websocket.Conn]uint),
}

// RegisterClient adds a connection scoped to one business.
func RegisterClient(conn *websocket.Conn, businessID uint) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[conn] = businessID
}

// UnregisterClient drops and closes a connection.
func UnregisterClient(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delete(hub.clients, conn)
	conn.Close()
}

// BroadcastOrderUpdate pushes an order change to its business's dashboards.
func BroadcastOrderUpdate(order models.Order) {
	broadcast(order.BusinessID, Message{Event: EventOrderUpdate, Data: order})
}

// BroadcastDeliveryUpdate pushes a dispatch change.
func BroadcastDeliveryUpdate(tracking models.DeliveryTracking) {
	broadcast(tracking.BusinessID, Message{Event: EventDeliveryUpdate, Data: tracking})
}

// BroadcastTableUpdate pushes a table availability change.
func BroadcastTableUpdate(table models.Table) {
	broadcast(table.BusinessID, Message{Event: EventTableUpdate, Data: table})
}

// BroadcastStaffNotification pushes a free-form notice to one business.
func BroadcastStaffNotification(businessID uint, text string) {
	broadcast(businessID, Message{Event: EventStaffNotif, Data: text})
}

func broadcast(businessID uint, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("marshal ws message: %v", err)
		return
	}

	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	for conn, connBusiness := range hub.clients {
		if connBusiness != businessID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			utils.ErrorLogger.Printf("ws write failed, dropping client: %v", err)
			delete(hub.clients, conn)
			conn.Close()
		}
	}
}
