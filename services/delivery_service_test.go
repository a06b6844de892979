package services

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tablelink/restaurant-ops/models"
	"gorm.io/gorm"
)

func newDeliveryService(db *gorm.DB) *DeliveryService {
	return NewDeliveryService(db, NewTenantService(db))
}

func seedDeliveryOrder(t *testing.T, db *gorm.DB, owner models.Identity) *models.Order {
	t.Helper()
	var items []models.MenuItem
	assert.NoError(t, db.Where("business_id = ?", owner.UserID).Find(&items).Error)
	order, err := newOrderService(db).CreateOrder(owner.UserID, OrderPlacement{
		CustomerName: "Delivery Customer",
		OrderType:    models.OrderTypeDelivery,
	}, []OrderItemRequest{{MenuItemID: items[0].ID, Quantity: 1}})
	assert.NoError(t, err)
	return order
}

func seedAgent(t *testing.T, db *gorm.DB, svc *DeliveryService, owner models.Identity, name string, online bool) *models.DeliveryAgent {
	t.Helper()
	agent, err := svc.CreateAgent(owner, AgentRequest{Name: name, Phone: "0812", VehicleType: "bike"})
	assert.NoError(t, err)
	if online {
		agent, err = svc.UpdateAgentStatus(owner, agent.ID, nil, &online)
		assert.NoError(t, err)
	}
	return agent
}

func TestCreateTrackingOncePerOrder(t *testing.T) {
	db := setupTestDB(t)
	svc := newDeliveryService(db)
	owner, _, _ := seedBusiness(t, db, "owner@dispatch-once.test")
	order := seedDeliveryOrder(t, db, owner)

	tracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: order.ID})
	assert.NoError(t, err)
	assert.Equal(t, models.DeliveryPending, tracking.Status)
	assert.Equal(t, order.BusinessID, tracking.BusinessID)

	_, err = svc.CreateTracking(owner, TrackingRequest{OrderID: order.ID})
	assert.ErrorIs(t, err, ErrTrackingExists)

	// The unique index holds even when the service is bypassed.
	dup := models.DeliveryTracking{BusinessID: order.BusinessID, OrderID: order.ID, Status: models.DeliveryPending}
	assert.ErrorIs(t, db.Create(&dup).Error, gorm.ErrDuplicatedKey)

	var count int64
	assert.NoError(t, db.Model(&models.DeliveryTracking{}).
		Where("order_id = ?", order.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAssignTakesTheAgent(t *testing.T) {
	db := setupTestDB(t)
	svc := newDeliveryService(db)
	owner, _, _ := seedBusiness(t, db, "owner@dispatch-assign.test")
	order := seedDeliveryOrder(t, db, owner)
	agent := seedAgent(t, db, svc, owner, "Rider A", true)

	tracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: order.ID})
	assert.NoError(t, err)

	assigned, err := svc.Assign(owner, tracking.ID, agent.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.DeliveryAssigned, assigned.Status)
	assert.NotNil(t, assigned.AssignedAt)
	if assert.NotNil(t, assigned.AgentID) {
		assert.Equal(t, agent.ID, *assigned.AgentID)
	}

	var stored models.DeliveryAgent
	assert.NoError(t, db.First(&stored, agent.ID).Error)
	assert.False(t, stored.IsAvailable)
}

func TestAssignLosesToTakenAgent(t *testing.T) {
	db := setupTestDB(t)
	svc := newDeliveryService(db)
	owner, _, _ := seedBusiness(t, db, "owner@dispatch-race.test")
	agent := seedAgent(t, db, svc, owner, "Rider A", true)

	first := seedDeliveryOrder(t, db, owner)
	second := seedDeliveryOrder(t, db, owner)
	firstTracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: first.ID})
	assert.NoError(t, err)
	secondTracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: second.ID})
	assert.NoError(t, err)

	_, err = svc.Assign(owner, firstTracking.ID, agent.ID)
	assert.NoError(t, err)

	// The conditional UPDATE is the mutex: the second assign finds no
	// available row to take and fails instead of double-booking.
	_, err = svc.Assign(owner, secondTracking.ID, agent.ID)
	assert.ErrorIs(t, err, ErrAgentUnavailable)
}

func TestAssignParallelSingleWinner(t *testing.T) {
	db := setupTestDB(t)
	// sqlite allows a single writer; queue the transactions on one connection
	// instead of surfacing busy errors.
	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	svc := newDeliveryService(db)
	owner, _, _ := seedBusiness(t, db, "owner@dispatch-parallel.test")
	agent := seedAgent(t, db, svc, owner, "Rider A", true)

	const contenders = 8
	trackingIDs := make([]uint, contenders)
	for i := range trackingIDs {
		order := seedDeliveryOrder(t, db, owner)
		tracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: order.ID})
		assert.NoError(t, err)
		trackingIDs[i] = tracking.ID
	}

	var wins int32
	var wg sync.WaitGroup
	for _, id := range trackingIDs {
		wg.Add(1)
		go func(trackingID uint) {
			defer wg.Done()
			if _, err := svc.Assign(owner, trackingID, agent.ID); err == nil {
				atomic.AddInt32(&wins, 1)
			} else {
				assert.ErrorIs(t, err, ErrAgentUnavailable)
			}
		}(id)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins)

	var stored models.DeliveryAgent
	assert.NoError(t, db.First(&stored, agent.ID).Error)
	assert.False(t, stored.IsAvailable)

	var assigned int64
	assert.NoError(t, db.Model(&models.DeliveryTracking{}).
		Where("agent_id = ?", agent.ID).Count(&assigned).Error)
	assert.EqualValues(t, 1, assigned)
}

func TestAssignRejectsOfflineAgent(t *testing.T) {
	db := setupTestDB(t)
	svc := newDeliveryService(db)
	owner, _, _ := seedBusiness(t, db, "owner@dispatch-offline.test")
	order := seedDeliveryOrder(t, db, owner)
	agent := seedAgent(t, db, svc, owner, "Rider A", false)

	tracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: order.ID})
	assert.NoError(t, err)

	_, err = svc.Assign(owner, tracking.ID, agent.ID)
	assert.ErrorIs(t, err, ErrAgentUnavailable)
}

func TestAssignRejectsForeignAgent(t *testing.T) {
	db := setupTestDB(t)
	svc := newDeliveryService(db)
	owner, _, _ := seedBusiness(t, db, "owner@dispatch-foreign.test")
	rival, _, _ := seedBusiness(t, db, "rival@dispatch-foreign.test")
	order := seedDeliveryOrder(t, db, owner)
	foreignAgent := seedAgent(t, db, svc, rival, "Rider X", true)

	tracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: order.ID})
	assert.NoError(t, err)

	_, err = svc.Assign(owner, tracking.ID, foreignAgent.ID)
	assert.ErrorIs(t, err, ErrCrossTenant)
}

func TestAutoAssignPicksLeastLoaded(t *testing.T) {
	db := setupTestDB(t)
	svc := newDeliveryService(db)
	owner, _, _ := seedBusiness(t, db, "owner@dispatch-auto.test")
	order := seedDeliveryOrder(t, db, owner)

	busy := seedAgent(t, db, svc, owner, "Busy Rider", true)
	assert.NoError(t, db.Model(&models.DeliveryAgent{}).Where("id = ?", busy.ID).
		Update("total_deliveries", 10).Error)
	fresh := seedAgent(t, db, svc, owner, "Fresh Rider", true)
	// Available but offline: never picked.
	seedAgent(t, db, svc, owner, "Offline Rider", false)

	tracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: order.ID})
	assert.NoError(t, err)

	assigned, err := svc.AutoAssign(owner, tracking.ID)
	assert.NoError(t, err)
	if assert.NotNil(t, assigned.AgentID) {
		assert.Equal(t, fresh.ID, *assigned.AgentID)
	}
}

func TestAutoAssignNoAgents(t *testing.T) {
	db := setupTestDB(t)
	svc := newDeliveryService(db)
	owner, _, _ := seedBusiness(t, db, "owner@dispatch-none.test")
	order := seedDeliveryOrder(t, db, owner)

	tracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: order.ID})
	assert.NoError(t, err)

	_, err = svc.AutoAssign(owner, tracking.ID)
	assert.ErrorIs(t, err, ErrNoAgentsAvailable)
}

func TestDeliveredClosesTheLoop(t *testing.T) {
	db := setupTestDB(t)
	svc := newDeliveryService(db)
	owner, _, _ := seedBusiness(t, db, "owner@dispatch-done.test")
	order := seedDeliveryOrder(t, db, owner)
	agent := seedAgent(t, db, svc, owner, "Rider A", true)

	tracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: order.ID})
	assert.NoError(t, err)
	_, err = svc.Assign(owner, tracking.ID, agent.ID)
	assert.NoError(t, err)

	advanced, err := svc.AdvanceStatus(owner, tracking.ID, models.DeliveryPickedUp)
	assert.NoError(t, err)
	assert.NotNil(t, advanced.PickedUpAt)

	_, err = svc.AdvanceStatus(owner, tracking.ID, models.DeliveryInTransit)
	assert.NoError(t, err)
	_, err = svc.AdvanceStatus(owner, tracking.ID, models.DeliveryArrived)
	assert.NoError(t, err)
	delivered, err := svc.AdvanceStatus(owner, tracking.ID, models.DeliveryDelivered)
	assert.NoError(t, err)
	assert.NotNil(t, delivered.DeliveredAt)

	// The agent is free again with one more delivery on the clock.
	var storedAgent models.DeliveryAgent
	assert.NoError(t, db.First(&storedAgent, agent.ID).Error)
	assert.True(t, storedAgent.IsAvailable)
	assert.Equal(t, 1, storedAgent.TotalDeliveries)

	// The order followed the delivery to its end.
	var storedOrder models.Order
	assert.NoError(t, db.First(&storedOrder, order.ID).Error)
	assert.Equal(t, models.OrderDelivered, storedOrder.Status)
	assert.NotNil(t, storedOrder.CompletedAt)
}

func TestAdvanceStatusRejectsIllegalMove(t *testing.T) {
	db := setupTestDB(t)
	svc := newDeliveryService(db)
	owner, _, _ := seedBusiness(t, db, "owner@dispatch-illegal.test")
	order := seedDeliveryOrder(t, db, owner)

	tracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: order.ID})
	assert.NoError(t, err)

	// No pickup before an assignment.
	_, err = svc.AdvanceStatus(owner, tracking.ID, models.DeliveryPickedUp)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelledDeliveryFreesAgent(t *testing.T) {
	db := setupTestDB(t)
	svc := newDeliveryService(db)
	owner, _, _ := seedBusiness(t, db, "owner@dispatch-cancel.test")
	order := seedDeliveryOrder(t, db, owner)
	agent := seedAgent(t, db, svc, owner, "Rider A", true)

	tracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: order.ID})
	assert.NoError(t, err)
	_, err = svc.Assign(owner, tracking.ID, agent.ID)
	assert.NoError(t, err)

	cancelled, err := svc.AdvanceStatus(owner, tracking.ID, models.DeliveryCancelled)
	assert.NoError(t, err)
	assert.Equal(t, models.DeliveryCancelled, cancelled.Status)

	var storedAgent models.DeliveryAgent
	assert.NoError(t, db.First(&storedAgent, agent.ID).Error)
	assert.True(t, storedAgent.IsAvailable)
	assert.Equal(t, 0, storedAgent.TotalDeliveries)

	// Terminal deliveries reject further moves.
	_, err = svc.AdvanceStatus(owner, tracking.ID, models.DeliveryAssigned)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateCurrentLocationMirrorsToAgent(t *testing.T) {
	db := setupTestDB(t)
	svc := newDeliveryService(db)
	owner, _, _ := seedBusiness(t, db, "owner@dispatch-location.test")
	order := seedDeliveryOrder(t, db, owner)
	agent := seedAgent(t, db, svc, owner, "Rider A", true)

	tracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: order.ID})
	assert.NoError(t, err)
	_, err = svc.Assign(owner, tracking.ID, agent.ID)
	assert.NoError(t, err)

	updated, err := svc.UpdateCurrentLocation(owner, tracking.ID, -6.2, 106.8)
	assert.NoError(t, err)
	if assert.NotNil(t, updated.CurrentLatitude) {
		assert.InDelta(t, -6.2, *updated.CurrentLatitude, 0.0001)
	}

	var storedAgent models.DeliveryAgent
	assert.NoError(t, db.First(&storedAgent, agent.ID).Error)
	if assert.NotNil(t, storedAgent.Latitude) {
		assert.InDelta(t, -6.2, *storedAgent.Latitude, 0.0001)
		assert.InDelta(t, 106.8, *storedAgent.Longitude, 0.0001)
	}
}

func TestUpdateCurrentLocationCrossTenantDenied(t *testing.T) {
	db := setupTestDB(t)
	svc := newDeliveryService(db)
	owner, _, _ := seedBusiness(t, db, "owner@dispatch-loc-deny.test")
	rival, _, _ := seedBusiness(t, db, "rival@dispatch-loc-deny.test")
	order := seedDeliveryOrder(t, db, owner)
	agent := seedAgent(t, db, svc, owner, "Rider A", true)

	tracking, err := svc.CreateTracking(owner, TrackingRequest{OrderID: order.ID})
	assert.NoError(t, err)
	_, err = svc.Assign(owner, tracking.ID, agent.ID)
	assert.NoError(t, err)

	// Neither a rival owner nor a customer account may move the courier.
	_, err = svc.UpdateCurrentLocation(rival, tracking.ID, 1.23, 4.56)
	assert.ErrorIs(t, err, ErrAccessDenied)
	customer := models.Identity{UserID: 999, Role: models.RoleNormal}
	_, err = svc.UpdateCurrentLocation(customer, tracking.ID, 1.23, 4.56)
	assert.ErrorIs(t, err, ErrAccessDenied)

	var stored models.DeliveryTracking
	assert.NoError(t, db.First(&stored, tracking.ID).Error)
	assert.Nil(t, stored.CurrentLatitude)
	assert.Nil(t, stored.CurrentLongitude)

	var storedAgent models.DeliveryAgent
	assert.NoError(t, db.First(&storedAgent, agent.ID).Error)
	assert.Nil(t, storedAgent.Latitude)
}
