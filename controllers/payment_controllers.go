package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/billing"
	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/services"
	"github.com/iqbalhamzah/dinelink/utils"
)

type PaymentController struct {
	DB       *gorm.DB
	Payments *services.PaymentService
}

func NewPaymentController(db *gorm.DB, payments *services.PaymentService) *PaymentController {
	return &PaymentController{DB: db, Payments: payments}
}

// RecordPayment settles one or more completed orders in a single batch.
// The cashier comes from the JWT, never from the request body.
func (pc *PaymentController) RecordPayment(c *gin.Context) {
	var body struct {
		OrderIDs      []uint   `json:"order_ids" binding:"required,min=1"`
		Method        string   `json:"method" binding:"required"`
		CashReceived  *float64 `json:"cash_received"`
		TNGReference  string   `json:"tng_reference"`
		DiscountType  string   `json:"discount_type"`
		DiscountValue float64  `json:"discount_value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		utils.RespondError(c, http.StatusUnauthorized, ErrNoPermission)
		return
	}

	req := services.PaymentRequest{
		OrderIDs:     body.OrderIDs,
		Method:       body.Method,
		CashReceived: body.CashReceived,
		TNGReference: body.TNGReference,
		ProcessedBy:  userID.(uint),
	}
	if body.DiscountType != "" {
		req.Discount = &billing.Discount{Type: body.DiscountType, Value: body.DiscountValue}
	}

	batch, err := pc.Payments.RecordPayment(req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Payment batch %s recorded by cashier %d (%d orders)",
		batch.BatchRef, req.ProcessedBy, len(batch.Payments))
	utils.RespondJSON(c, http.StatusCreated, "Payment recorded", batch)
}

// GetAllPayments lists ledger rows, newest first, optionally by method.
func (pc *PaymentController) GetAllPayments(c *gin.Context) {
	query := pc.DB.Preload("Order").Preload("Order.Table")
	if method := c.Query("method"); method != "" {
		query = query.Where("method = ?", method)
	}

	var payments []models.Payment
	if err := query.Order("payment_date desc").Find(&payments).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of payments", payments)
}

// GetPaymentByID returns the whole batch the payment belongs to, so a
// merged-table settlement always shows its sibling rows.
func (pc *PaymentController) GetPaymentByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("payment_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	payments, err := pc.Payments.GetBatch(uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var total float64
	for _, p := range payments {
		total += p.Amount
	}

	utils.RespondJSON(c, http.StatusOK, "Payment detail", gin.H{
		"batch_ref": payments[0].BatchRef,
		"total":     total,
		"payments":  payments,
	})
}
