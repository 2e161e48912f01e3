package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/services"
	"github.com/iqbalhamzah/dinelink/utils"
)

// SessionController handles the diner side of the QR flow: a scan
// validates the table token and opens (or resumes) a seated session.
type SessionController struct {
	DB     *gorm.DB
	Tokens *services.TokenService
}

func NewSessionController(db *gorm.DB, tokens *services.TokenService) *SessionController {
	return &SessionController{DB: db, Tokens: tokens}
}

// ScanTable is the QR landing endpoint. A valid token starts or resumes
// the table's diner session; an expired or rotated token is rejected so
// the previous party's QR stops working after settlement.
func (sc *SessionController) ScanTable(c *gin.Context) {
	tableID, err := strconv.Atoi(c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	token, err := sc.Tokens.Validate(uint(tableID), c.Query("token"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var table models.Table
	if err := sc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if table.Status != models.TableStatusActive {
		utils.RespondError(c, http.StatusConflict, &CustomError{"Table is not in service"})
		return
	}

	// Resume the current party's session if the same token scans again.
	var session models.DinerSession
	err = sc.DB.Where("table_id = ? AND status = ?", table.ID, models.SessionStatusActive).
		First(&session).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		session = models.DinerSession{
			TableID:   table.ID,
			QRTokenID: token.ID,
			Status:    models.SessionStatusActive,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := sc.DB.Create(&session).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.InfoLogger.Printf("New diner session %d opened at table %d", session.ID, table.ID)
	case err != nil:
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Welcome", gin.H{
		"table":   table,
		"session": session,
	})
}

// GetActiveSession reports whether a table currently has a seated party.
func (sc *SessionController) GetActiveSession(c *gin.Context) {
	tableID := c.Param("table_id")

	var session models.DinerSession
	err := sc.DB.Preload("Table").
		Where("table_id = ? AND status = ?", tableID, models.SessionStatusActive).
		First(&session).Error
	if err == gorm.ErrRecordNotFound {
		utils.RespondJSON(c, http.StatusOK, "No active session", gin.H{"active": false})
		return
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Active session", gin.H{
		"active":  true,
		"session": session,
	})
}

// GetAllSessions lists sessions for the admin panel.
func (sc *SessionController) GetAllSessions(c *gin.Context) {
	var sessions []models.DinerSession
	if err := sc.DB.Preload("Table").Find(&sessions).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of sessions", sessions)
}
