package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tablelink/restaurant-ops/middlewares"
	"github.com/tablelink/restaurant-ops/models"
	"github.com/tablelink/restaurant-ops/services"
	"github.com/tablelink/restaurant-ops/utils"
	"gorm.io/gorm"
)

type MenuController struct {
	DB     *gorm.DB
	Tenant *services.TenantService
}

func NewMenuController(db *gorm.DB, tenant *services.TenantService) *MenuController {
	return &MenuController{DB: db, Tenant: tenant}
}

// CreateCategory -> add a menu category to the caller's business
func (mc *MenuController) CreateCategory(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	businessID, err := mc.Tenant.ResolveTenant(identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if businessID == nil {
		respondServiceError(c, services.ErrAccessDenied)
		return
	}

	category := models.MenuCategory{
		BusinessID:  *businessID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := mc.DB.Create(&category).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}

// ListCategories -> categories of the caller's business
func (mc *MenuController) ListCategories(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	businessID, err := mc.Tenant.ResolveTenant(identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if businessID == nil && identity.Role != models.RoleAdmin {
		respondServiceError(c, services.ErrAccessDenied)
		return
	}

	query := mc.DB.Order("name asc")
	if businessID != nil {
		query = query.Where("business_id = ?", *businessID)
	}

	var categories []models.MenuCategory
	if err := query.Find(&categories).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of categories", categories)
}

type menuItemRequest struct {
	CategoryID  uint    `json:"category_id" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required"`
	ImageUrl    *string `json:"image_url"`
}

// CreateItem -> add a menu item under one of the business's categories
func (mc *MenuController) CreateItem(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	businessID, err := mc.Tenant.ResolveTenant(identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if businessID == nil {
		respondServiceError(c, services.ErrAccessDenied)
		return
	}

	// The category must belong to the same business as the item.
	var category models.MenuCategory
	if err := mc.DB.First(&category, req.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondServiceError(c, services.ErrNotFound)
		} else {
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}
	if category.BusinessID != *businessID {
		respondServiceError(c, services.ErrCrossTenant)
		return
	}

	item := models.MenuItem{
		BusinessID:  *businessID,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageUrl:    req.ImageUrl,
		IsAvailable: true,
	}
	if err := mc.DB.Create(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", item)
}

// ListItems -> items of the caller's business, ?category_id= filters
func (mc *MenuController) ListItems(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	businessID, err := mc.Tenant.ResolveTenant(identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if businessID == nil && identity.Role != models.RoleAdmin {
		respondServiceError(c, services.ErrAccessDenied)
		return
	}

	query := mc.DB.Preload("Category").Order("name asc")
	if businessID != nil {
		query = query.Where("business_id = ?", *businessID)
	}
	if raw := c.Query("category_id"); raw != "" {
		categoryID, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		query = query.Where("category_id = ?", categoryID)
	}

	var items []models.MenuItem
	if err := query.Find(&items).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

// UpdateItem -> edit price, text, category or availability
func (mc *MenuController) UpdateItem(c *gin.Context) {
	item, ok := mc.loadItem(c)
	if !ok {
		return
	}

	var req struct {
		CategoryID  *uint    `json:"category_id"`
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		Price       *float64 `json:"price"`
		ImageUrl    *string  `json:"image_url"`
		IsAvailable *bool    `json:"is_available"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if req.CategoryID != nil {
		var category models.MenuCategory
		if err := mc.DB.First(&category, *req.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondServiceError(c, services.ErrNotFound)
			} else {
				utils.RespondError(c, http.StatusInternalServerError, err)
			}
			return
		}
		if category.BusinessID != item.BusinessID {
			respondServiceError(c, services.ErrCrossTenant)
			return
		}
		item.CategoryID = *req.CategoryID
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Price != nil && *req.Price >= 0 {
		item.Price = *req.Price
	}
	if req.ImageUrl != nil {
		item.ImageUrl = req.ImageUrl
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}

	if err := mc.DB.Save(item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item updated", item)
}

// DeleteItem -> remove a menu item
func (mc *MenuController) DeleteItem(c *gin.Context) {
	item, ok := mc.loadItem(c)
	if !ok {
		return
	}

	if err := mc.DB.Delete(item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item deleted", gin.H{"id": item.ID})
}

func (mc *MenuController) loadItem(c *gin.Context) (*models.MenuItem, bool) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return nil, false
	}

	itemID, err := strconv.Atoi(c.Param("item_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return nil, false
	}

	var item models.MenuItem
	if err := mc.DB.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondServiceError(c, services.ErrNotFound)
		} else {
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return nil, false
	}

	if err := mc.Tenant.ValidateAccess(identity, item.BusinessID); err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	return &item, true
}
