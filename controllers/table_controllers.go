package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tablelink/restaurant-ops/events"
	"github.com/tablelink/restaurant-ops/middlewares"
	"github.com/tablelink/restaurant-ops/models"
	"github.com/tablelink/restaurant-ops/services"
	"github.com/tablelink/restaurant-ops/utils"
	"gorm.io/gorm"
)

type TableController struct {
	DB     *gorm.DB
	Tenant *services.TenantService
}

func NewTableController(db *gorm.DB, tenant *services.TenantService) *TableController {
	return &TableController{DB: db, Tenant: tenant}
}

// Create -> add a table to the caller's business
func (tc *TableController) Create(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	var req struct {
		TableNumber string `json:"table_number" binding:"required"`
		TableName   string `json:"table_name"`
		Capacity    int    `json:"capacity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	businessID, err := tc.Tenant.ResolveTenant(identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if businessID == nil {
		respondServiceError(c, services.ErrAccessDenied)
		return
	}

	table := models.Table{
		BusinessID:  *businessID,
		TableNumber: req.TableNumber,
		TableName:   req.TableName,
		Capacity:    req.Capacity,
		IsAvailable: true,
	}
	if table.Capacity <= 0 {
		table.Capacity = 2
	}

	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Table %s created for business %d", table.TableNumber, table.BusinessID)
	utils.RespondJSON(c, http.StatusCreated, "Table created", table)
}

// List -> tables of the caller's business (admin sees all)
func (tc *TableController) List(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	businessID, err := tc.Tenant.ResolveTenant(identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if businessID == nil && identity.Role != models.RoleAdmin {
		respondServiceError(c, services.ErrAccessDenied)
		return
	}

	query := tc.DB.Order("table_number asc")
	if businessID != nil {
		query = query.Where("business_id = ?", *businessID)
	}

	var tables []models.Table
	if err := query.Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// Get -> one table
func (tc *TableController) Get(c *gin.Context) {
	table, ok := tc.loadTable(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// Update -> rename or resize a table, or flip its availability by hand
func (tc *TableController) Update(c *gin.Context) {
	table, ok := tc.loadTable(c)
	if !ok {
		return
	}

	var req struct {
		TableName   *string `json:"table_name"`
		Capacity    *int    `json:"capacity"`
		IsAvailable *bool   `json:"is_available"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if req.TableName != nil {
		table.TableName = *req.TableName
	}
	if req.Capacity != nil && *req.Capacity > 0 {
		table.Capacity = *req.Capacity
	}
	availabilityChanged := false
	if req.IsAvailable != nil && table.IsAvailable != *req.IsAvailable {
		table.IsAvailable = *req.IsAvailable
		availabilityChanged = true
	}

	if err := tc.DB.Save(table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if availabilityChanged {
		events.BroadcastTableUpdate(*table)
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

// Delete -> remove a table; its QR codes go with it
func (tc *TableController) Delete(c *gin.Context) {
	table, ok := tc.loadTable(c)
	if !ok {
		return
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("business_id = ? AND table_id = ?", table.BusinessID, table.ID).
			Delete(&models.QRCode{}).Error; err != nil {
			return err
		}
		return tx.Delete(table).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Table %d deleted from business %d", table.ID, table.BusinessID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": table.ID})
}

// loadTable fetches the table from the path param and enforces tenancy.
// On failure it has already written the response.
func (tc *TableController) loadTable(c *gin.Context) (*models.Table, bool) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return nil, false
	}

	tableID, err := strconv.Atoi(c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return nil, false
	}

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondServiceError(c, services.ErrNotFound)
		} else {
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return nil, false
	}

	if err := tc.Tenant.ValidateAccess(identity, table.BusinessID); err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	return &table, true
}
