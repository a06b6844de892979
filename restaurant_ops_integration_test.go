package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/tablelink/restaurant-ops/models"
	"github.com/tablelink/restaurant-ops/router"
	"github.com/tablelink/restaurant-ops/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	os.Setenv("JWT_SECRET", "integration-test-secret")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// TestGuestOrderingFlow walks the whole contactless path:
// owner sets up a table, menu and QR code; a guest scans, orders and pays;
// staff advances the order in between.
func TestGuestOrderingFlow(t *testing.T) {
	db := setupIntegrationDB(t)
	r := router.SetupRouter(db)

	owner := models.User{Name: "Owner", Email: "owner@flow.test", Password: "secret", Role: models.RoleOwner}
	assert.NoError(t, db.Create(&owner).Error)
	token, err := utils.GenerateToken(owner.ID, models.RoleOwner)
	assert.NoError(t, err)

	// Owner creates a table.
	tableData := doJSON(t, r, "POST", "/api/tables", token, "", map[string]interface{}{
		"table_number": "T1",
		"capacity":     4,
	}, http.StatusCreated)
	tableID := uint(tableData["id"].(float64))

	// Menu: one category, one item.
	categoryData := doJSON(t, r, "POST", "/api/categories", token, "", map[string]interface{}{
		"name": "Mains",
	}, http.StatusCreated)
	itemData := doJSON(t, r, "POST", "/api/menus", token, "", map[string]interface{}{
		"category_id": categoryData["id"],
		"name":        "Nasi Goreng",
		"price":       12.5,
	}, http.StatusCreated)
	itemID := uint(itemData["id"].(float64))

	// QR code for the table.
	qrData := doJSON(t, r, "POST", fmt.Sprintf("/api/tables/%d/qr", tableID), token, "", nil, http.StatusCreated)
	qrToken := qrData["token"].(string)

	// Guest scans in.
	sessionData := doJSON(t, r, "GET", "/guest/scan/"+qrToken, "", "", nil, http.StatusOK)
	sessionToken := sessionData["token"].(string)
	assert.Equal(t, float64(owner.ID), sessionData["business_id"])

	// The menu the guest sees is the owner's.
	menuReq, _ := http.NewRequest("GET", "/guest/menu", nil)
	menuReq.Header.Set("X-Session-Token", sessionToken)
	menuRec := httptest.NewRecorder()
	r.ServeHTTP(menuRec, menuReq)
	assert.Equal(t, http.StatusOK, menuRec.Code)

	// Guest places an order.
	orderData := doJSON(t, r, "POST", "/guest/orders", "", sessionToken, map[string]interface{}{
		"guest_name": "Dina",
		"items": []map[string]interface{}{
			{"menu_item_id": itemID, "quantity": 2},
		},
	}, http.StatusCreated)
	orderID := uint(orderData["id"].(float64))
	assert.InDelta(t, 26.25, orderData["total_amount"].(float64), 0.001) // 25 + 5% tax

	// Staff advances the order.
	for _, status := range []string{"confirmed", "preparing", "ready", "served", "completed"} {
		doJSON(t, r, "PATCH", fmt.Sprintf("/api/orders/%d/status", orderID), token, "",
			map[string]interface{}{"status": status}, http.StatusOK)
	}

	// Completion released the table.
	var table models.Table
	assert.NoError(t, db.First(&table, tableID).Error)
	assert.True(t, table.IsAvailable)

	// Guest closes the session; a second attempt is rejected.
	doJSON(t, r, "POST", "/guest/session/complete", "", sessionToken, nil, http.StatusOK)
	completeReq, _ := http.NewRequest("POST", "/guest/session/complete", nil)
	completeReq.Header.Set("X-Session-Token", sessionToken)
	completeRec := httptest.NewRecorder()
	r.ServeHTTP(completeRec, completeReq)
	assert.Equal(t, http.StatusBadRequest, completeRec.Code)
}

// TestTenantIsolationOverHTTP checks that one owner cannot read or mutate
// another owner's records through the API.
func TestTenantIsolationOverHTTP(t *testing.T) {
	db := setupIntegrationDB(t)
	r := router.SetupRouter(db)

	owner := models.User{Name: "Owner", Email: "owner@iso.test", Password: "secret", Role: models.RoleOwner}
	assert.NoError(t, db.Create(&owner).Error)
	rival := models.User{Name: "Rival", Email: "rival@iso.test", Password: "secret", Role: models.RoleOwner}
	assert.NoError(t, db.Create(&rival).Error)

	ownerToken, err := utils.GenerateToken(owner.ID, models.RoleOwner)
	assert.NoError(t, err)
	rivalToken, err := utils.GenerateToken(rival.ID, models.RoleOwner)
	assert.NoError(t, err)

	tableData := doJSON(t, r, "POST", "/api/tables", ownerToken, "", map[string]interface{}{
		"table_number": "T1",
	}, http.StatusCreated)
	tableID := uint(tableData["id"].(float64))

	// The rival cannot see or touch the owner's table.
	getReq, _ := http.NewRequest("GET", fmt.Sprintf("/api/tables/%d", tableID), nil)
	getReq.Header.Set("Authorization", "Bearer "+rivalToken)
	getRec := httptest.NewRecorder()
	r.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusForbidden, getRec.Code)

	delReq, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/tables/%d", tableID), nil)
	delReq.Header.Set("Authorization", "Bearer "+rivalToken)
	delRec := httptest.NewRecorder()
	r.ServeHTTP(delRec, delReq)
	assert.Equal(t, http.StatusForbidden, delRec.Code)

	// And no token at all means no entry.
	anonReq, _ := http.NewRequest("GET", "/api/tables", nil)
	anonRec := httptest.NewRecorder()
	r.ServeHTTP(anonRec, anonReq)
	assert.Equal(t, http.StatusUnauthorized, anonRec.Code)
}

// TestGlobalRateLimitOverHTTP hammers an endpoint past the per-IP window and
// expects the limiter to start rejecting.
func TestGlobalRateLimitOverHTTP(t *testing.T) {
	db := setupIntegrationDB(t)
	r := router.SetupRouter(db)

	codes := make(map[int]int)
	for i := 0; i < 60; i++ {
		req, _ := http.NewRequest("GET", "/ping", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes[rec.Code]++
	}

	assert.GreaterOrEqual(t, codes[http.StatusOK], 50)
	assert.GreaterOrEqual(t, codes[http.StatusTooManyRequests], 1)
}

func setupIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	autoMigrate(db)
	return db
}

// doJSON fires a request with the right auth header, asserts the status code
// and unwraps the response envelope's data object.
func doJSON(t *testing.T, r *gin.Engine, method, path, bearer, sessionToken string,
	body map[string]interface{}, wantCode int) map[string]interface{} {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if sessionToken != "" {
		req.Header.Set("X-Session-Token", sessionToken)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if !assert.Equal(t, wantCode, rec.Code, "body: %s", rec.Body.String()) {
		t.FailNow()
	}

	var resp struct {
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		// Some endpoints return arrays; callers that need those parse them
		// themselves.
		return nil
	}
	return resp.Data
}
