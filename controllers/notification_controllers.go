package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/utils"
)

type NotificationController struct {
	DB *gorm.DB
}

func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{DB: db}
}

// GetNotifications returns the latest staff notifications, newest first.
func (nc *NotificationController) GetNotifications(c *gin.Context) {
	var notifications []models.Notification
	if err := nc.DB.Order("created_at desc").Limit(50).Find(&notifications).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notifications", notifications)
}
