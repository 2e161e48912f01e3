package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/utils"
)

type MenuCategoryController struct {
	DB *gorm.DB
}

func NewMenuCategoryController(db *gorm.DB) *MenuCategoryController {
	return &MenuCategoryController{DB: db}
}

func (cc *MenuCategoryController) GetAllCategories(c *gin.Context) {
	var categories []models.MenuCategory
	if err := cc.DB.Order("name asc").Find(&categories).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of categories", categories)
}

func (cc *MenuCategoryController) CreateCategory(c *gin.Context) {
	var body struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	category := models.MenuCategory{Name: body.Name}
	if err := cc.DB.Create(&category).Error; err != nil {
		utils.RespondError(c, http.StatusConflict, &CustomError{"Category already exists"})
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}

func (cc *MenuCategoryController) UpdateCategory(c *gin.Context) {
	var category models.MenuCategory
	if err := cc.DB.First(&category, c.Param("category_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var body struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	category.Name = body.Name
	if err := cc.DB.Save(&category).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category updated", category)
}

// DeleteCategory refuses when menus still point at the category.
func (cc *MenuCategoryController) DeleteCategory(c *gin.Context) {
	var category models.MenuCategory
	if err := cc.DB.First(&category, c.Param("category_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var menuCount int64
	if err := cc.DB.Model(&models.Menu{}).Where("category_id = ?", category.ID).Count(&menuCount).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if menuCount > 0 {
		utils.RespondError(c, http.StatusConflict, &CustomError{"Category still has menus"})
		return
	}

	if err := cc.DB.Delete(&category).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category deleted", gin.H{"id": category.ID})
}
