package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/utils"
)

type MenuController struct {
	DB *gorm.DB
}

func NewMenuController(db *gorm.DB) *MenuController {
	return &MenuController{DB: db}
}

// GetAllMenus lists menus, optionally filtered by category or
// availability. The diner-facing menu page calls this with
// available=true.
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	query := mc.DB.Preload("Category")
	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if c.Query("available") == "true" {
		query = query.Where("available = ? AND stock > 0", true)
	}

	var menus []models.Menu
	if err := query.Order("name asc").Find(&menus).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menus", menus)
}

func (mc *MenuController) GetMenuByID(c *gin.Context) {
	var menu models.Menu
	if err := mc.DB.Preload("Category").First(&menu, c.Param("menu_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu detail", menu)
}

func (mc *MenuController) CreateMenu(c *gin.Context) {
	var body struct {
		CategoryID  uint    `json:"category_id" binding:"required"`
		Name        string  `json:"name" binding:"required"`
		Price       float64 `json:"price" binding:"required,gt=0"`
		Stock       int     `json:"stock" binding:"gte=0"`
		Description string  `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var category models.MenuCategory
	if err := mc.DB.First(&category, body.CategoryID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, &CustomError{"Category not found"})
		return
	}

	menu := models.Menu{
		CategoryID:  body.CategoryID,
		Name:        body.Name,
		Price:       body.Price,
		Stock:       body.Stock,
		Description: body.Description,
		Available:   true,
	}
	if err := mc.DB.Create(&menu).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Menu created: %s (%s)", menu.Name, utils.FormatCurrencyMYR(menu.Price))
	utils.RespondJSON(c, http.StatusCreated, "Menu created", menu)
}

func (mc *MenuController) UpdateMenu(c *gin.Context) {
	var menu models.Menu
	if err := mc.DB.First(&menu, c.Param("menu_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var body struct {
		CategoryID  *uint    `json:"category_id"`
		Name        *string  `json:"name"`
		Price       *float64 `json:"price"`
		Stock       *int     `json:"stock"`
		Description *string  `json:"description"`
		Available   *bool    `json:"available"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if body.CategoryID != nil {
		menu.CategoryID = *body.CategoryID
	}
	if body.Name != nil {
		menu.Name = *body.Name
	}
	if body.Price != nil {
		if *body.Price <= 0 {
			utils.RespondError(c, http.StatusBadRequest, &CustomError{"Price must be positive"})
			return
		}
		menu.Price = *body.Price
	}
	if body.Stock != nil {
		if *body.Stock < 0 {
			utils.RespondError(c, http.StatusBadRequest, &CustomError{"Stock cannot be negative"})
			return
		}
		menu.Stock = *body.Stock
	}
	if body.Description != nil {
		menu.Description = *body.Description
	}
	if body.Available != nil {
		menu.Available = *body.Available
	}

	if err := mc.DB.Save(&menu).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Menu updated", menu)
}

// DeleteMenu removes a menu. Menus referenced by past order items are
// disabled instead of deleted so historical receipts keep their names.
func (mc *MenuController) DeleteMenu(c *gin.Context) {
	var menu models.Menu
	if err := mc.DB.First(&menu, c.Param("menu_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var refs int64
	if err := mc.DB.Model(&models.OrderItem{}).Where("menu_id = ?", menu.ID).Count(&refs).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if refs > 0 {
		menu.Available = false
		if err := mc.DB.Save(&menu).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Menu disabled (referenced by past orders)", menu)
		return
	}

	if err := mc.DB.Delete(&menu).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu deleted", gin.H{"id": menu.ID})
}
