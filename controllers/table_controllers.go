package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/events"
	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/services"
	"github.com/iqbalhamzah/dinelink/utils"
)

type TableController struct {
	DB     *gorm.DB
	Tokens *services.TokenService
}

func NewTableController(db *gorm.DB, tokens *services.TokenService) *TableController {
	return &TableController{DB: db, Tokens: tokens}
}

// CreateTable adds a table and issues its first QR token.
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		TableNumber string `json:"table_number" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table := models.Table{
		TableNumber: req.TableNumber,
		Status:      models.TableStatusActive,
	}
	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	token, err := tc.Tokens.Issue(table.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastTableUpdate(events.EventTableCreate, table)

	utils.InfoLogger.Printf("New table created: %s (token issued)", table.TableNumber)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", gin.H{
		"table": table,
		"token": token,
	})
}

// GetAllTables lists every table.
func (tc *TableController) GetAllTables(c *gin.Context) {
	var tables []models.Table
	if err := tc.DB.Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// GetTableByID returns one table with its current active token.
func (tc *TableController) GetTableByID(c *gin.Context) {
	tableID := c.Param("table_id")

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var token models.QRToken
	tc.DB.Where("table_id = ? AND is_active = ?", table.ID, true).First(&token)

	utils.RespondJSON(c, http.StatusOK, "Table detail", gin.H{
		"table": table,
		"token": token,
	})
}

// UpdateTableStatus toggles a table between active and inactive.
func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	tableID := c.Param("table_id")
	var body struct {
		Status string `json:"status" binding:"required"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.Status != models.TableStatusActive && body.Status != models.TableStatusInactive {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid table status: %s", body.Status))
		return
	}

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	table.Status = body.Status
	if err := tc.DB.Save(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	events.BroadcastTableUpdate(events.EventTableUpdate, table)

	utils.InfoLogger.Printf("Table %d status changed to %s", table.ID, table.Status)
	utils.RespondJSON(c, http.StatusOK, "Table status updated", table)
}

// RegenerateToken rotates a table's QR token on demand, e.g. after a
// printed QR standee goes missing.
func (tc *TableController) RegenerateToken(c *gin.Context) {
	tableID := c.Param("table_id")

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	token, err := tc.Tokens.Issue(table.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Token regenerated for table %d", table.ID)
	utils.RespondJSON(c, http.StatusOK, "Token regenerated", token)
}

// DeleteTable removes a table that no order references. Its tokens are
// deactivated first so no dangling QR keeps working.
func (tc *TableController) DeleteTable(c *gin.Context) {
	tableID := c.Param("table_id")

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var orderCount int64
	if err := tc.DB.Model(&models.Order{}).Where("table_id = ?", table.ID).Count(&orderCount).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if orderCount > 0 {
		utils.RespondError(c, http.StatusConflict,
			fmt.Errorf("table %s still has %d order(s)", table.TableNumber, orderCount))
		return
	}

	tx := tc.DB.Begin()
	if err := tx.Model(&models.QRToken{}).
		Where("table_id = ? AND is_active = ?", table.ID, true).
		Update("is_active", false).Error; err != nil {
		tx.Rollback()
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if err := tx.Delete(&table).Error; err != nil {
		tx.Rollback()
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if err := tx.Commit().Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	events.BroadcastTableUpdate(events.EventTableDelete, gin.H{"table_id": table.ID})

	utils.InfoLogger.Printf("Table %d deleted", table.ID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": table.ID})
}
