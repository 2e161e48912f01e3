package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/billing"
	"github.com/iqbalhamzah/dinelink/config"
	"github.com/iqbalhamzah/dinelink/events"
	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/services"
	"github.com/iqbalhamzah/dinelink/utils"
)

type OrderController struct {
	DB     *gorm.DB
	Cfg    config.Config
	Tokens *services.TokenService
}

func NewOrderController(db *gorm.DB, cfg config.Config, tokens *services.TokenService) *OrderController {
	return &OrderController{DB: db, Cfg: cfg, Tokens: tokens}
}

// GetAllOrders lists orders with their items, optionally by status.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	query := oc.DB.Preload("OrderItems").Preload("OrderItems.Menu").Preload("Table")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// CreateOrder is the diner checkout: the table token must validate, the
// session must be seated, and every line is priced from the menu at
// order time. The preview total uses the nearest-5-sen rule; the exact
// payable amount is computed again at settlement with the register rule.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	tableID, err := strconv.Atoi(c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if _, err := oc.Tokens.Validate(uint(tableID), c.Query("token")); err != nil {
		respondServiceError(c, err)
		return
	}

	var session models.DinerSession
	if err := oc.DB.Where("table_id = ? AND status = ?", tableID, models.SessionStatusActive).
		First(&session).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, fmt.Errorf("no active session at this table"))
		return
	}

	type ItemReq struct {
		MenuID       uint   `json:"menu_id" binding:"required"`
		Quantity     int    `json:"quantity" binding:"required"`
		Instructions string `json:"instructions"`
	}
	var body struct {
		Items []ItemReq `json:"items" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	for _, item := range body.Items {
		if item.Quantity < 1 {
			utils.RespondError(c, http.StatusBadRequest, billing.ErrInvalidInput)
			return
		}
	}

	now := time.Now()
	var order models.Order
	var lines []billing.Line

	tx := oc.DB.Begin()
	order = models.Order{
		TableID:   uint(tableID),
		SessionID: &session.ID,
		Status:    models.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var subtotal int64
	for _, item := range body.Items {
		var menu models.Menu
		if err := tx.First(&menu, item.MenuID).Error; err != nil {
			tx.Rollback()
			utils.RespondError(c, http.StatusNotFound, fmt.Errorf("menu %d not found", item.MenuID))
			return
		}
		if !menu.Available || menu.Stock < item.Quantity {
			tx.Rollback()
			utils.RespondError(c, http.StatusConflict, fmt.Errorf("menu %s is not available", menu.Name))
			return
		}

		if err := tx.Model(&models.Menu{}).Where("id = ?", menu.ID).
			Update("stock", gorm.Expr("stock - ?", item.Quantity)).Error; err != nil {
			tx.Rollback()
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}

		orderItem := models.OrderItem{
			OrderID:      order.ID,
			MenuID:       menu.ID,
			Quantity:     item.Quantity,
			UnitPrice:    menu.Price,
			Instructions: item.Instructions,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&orderItem).Error; err != nil {
			tx.Rollback()
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}

		line := billing.Line{UnitPrice: billing.ToCents(menu.Price), Quantity: item.Quantity}
		lines = append(lines, line)
		subtotal += line.UnitPrice * int64(line.Quantity)
	}

	order.TotalAmount = billing.FromCents(subtotal)
	if err := tx.Save(&order).Error; err != nil {
		tx.Rollback()
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if err := tx.Commit().Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	preview := cartPreview(lines, oc.Cfg.TaxRate, oc.Cfg.ServiceTaxRate)

	events.BroadcastOrderUpdate(events.EventOrderCreate, order)
	utils.InfoLogger.Printf("Order %d created at table %d (%d items)", order.ID, tableID, len(body.Items))
	utils.RespondJSON(c, http.StatusCreated, "Order created", gin.H{
		"order":   order,
		"preview": preview,
	})
}

// cartPreview estimates the bill for the diner. The preview rounds with
// the nearest-5-sen rule, not the register's cash rule.
func cartPreview(lines []billing.Line, taxRate, serviceTaxRate float64) gin.H {
	breakdown, err := billing.Calculate(lines, taxRate, serviceTaxRate, nil)
	if err != nil {
		return gin.H{}
	}
	beforeRounding := breakdown.Subtotal + breakdown.Tax + breakdown.ServiceTax
	return gin.H{
		"subtotal":        billing.FromCents(breakdown.Subtotal),
		"tax":             billing.FromCents(breakdown.Tax),
		"service_tax":     billing.FromCents(breakdown.ServiceTax),
		"estimated_total": billing.FromCents(billing.RoundToNearestFive(beforeRounding)),
	}
}

// GetOrderByID returns one order with items.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	idStr := c.Param("order_id")
	id, _ := strconv.Atoi(idStr)

	var order models.Order
	if err := oc.DB.Preload("OrderItems").Preload("OrderItems.Menu").Preload("Table").
		First(&order, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// UpdateOrderStatus advances an order along its lifecycle. Transitions
// are monotonic and a settled order is immutable.
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	orderID := c.Param("order_id")

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var order models.Order
	if err := oc.DB.First(&order, orderID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var settled int64
	oc.DB.Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", order.ID, models.PaymentStatusCompleted).
		Count(&settled)
	if settled > 0 {
		utils.RespondError(c, http.StatusConflict, fmt.Errorf("order %d is already settled", order.ID))
		return
	}

	if !order.CanTransitionTo(body.Status) {
		utils.RespondError(c, http.StatusConflict,
			fmt.Errorf("cannot move order from %s to %s", order.Status, body.Status))
		return
	}

	order.Status = body.Status
	order.UpdatedAt = time.Now()
	if err := oc.DB.Save(&order).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	events.BroadcastOrderUpdate(events.EventOrderUpdate, order)
	utils.InfoLogger.Printf("Order %d moved to %s", order.ID, order.Status)
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// GetKitchenQueue lists orders the kitchen still has to act on.
func (oc *OrderController) GetKitchenQueue(c *gin.Context) {
	var orders []models.Order
	if err := oc.DB.Preload("OrderItems").Preload("OrderItems.Menu").Preload("Table").
		Where("status IN ?", []string{models.OrderStatusPending, models.OrderStatusProcessing}).
		Order("created_at asc").
		Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Kitchen queue", orders)
}
