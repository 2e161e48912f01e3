package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/config"
	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/services"
	"github.com/iqbalhamzah/dinelink/utils"
)

func setupControllerTest(t *testing.T) (*gorm.DB, *gin.Engine, *services.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Table{},
		&models.QRToken{},
		&models.DinerSession{},
		&models.MenuCategory{},
		&models.Menu{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Notification{},
	))

	category := models.MenuCategory{Name: "Mains"}
	require.NoError(t, db.Create(&category).Error)
	require.NoError(t, db.Create(&models.Menu{
		CategoryID: category.ID,
		Name:       "Nasi Lemak Ayam",
		Price:      12.50,
		Stock:      10,
		Available:  true,
	}).Error)
	require.NoError(t, db.Create(&models.Table{
		TableNumber: "T1",
		Status:      models.TableStatusActive,
	}).Error)

	cfg := config.Config{
		QRTokenTTL:     2 * time.Hour,
		TaxRate:        0.06,
		ServiceTaxRate: 0.10,
		BaseURL:        "http://localhost:8080",
	}
	tokens := services.NewTokenService(db, cfg, nil)

	r := gin.New()
	sessionCtrl := NewSessionController(db, tokens)
	orderCtrl := NewOrderController(db, cfg, tokens)
	r.GET("/tables/:table_id/scan", sessionCtrl.ScanTable)
	r.POST("/tables/:table_id/orders", orderCtrl.CreateOrder)
	r.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)

	return db, r, tokens
}

func openSession(t *testing.T, r *gin.Engine, qrToken string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/tables/1/scan?token="+qrToken, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func placeOrder(t *testing.T, r *gin.Engine, qrToken string, quantity int) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{
		"items": []map[string]interface{}{
			{"menu_id": 1, "quantity": quantity},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/tables/1/orders?token="+qrToken, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestScanRejectsWrongToken(t *testing.T) {
	db, r, tokens := setupControllerTest(t)
	_, err := tokens.Issue(1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/tables/1/scan?token=deadbeef", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var sessions int64
	db.Model(&models.DinerSession{}).Count(&sessions)
	assert.Zero(t, sessions)
}

func TestScanRejectsExpiredToken(t *testing.T) {
	db, r, tokens := setupControllerTest(t)
	token, err := tokens.Issue(1)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.QRToken{}).
		Where("id = ?", token.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	req := httptest.NewRequest(http.MethodGet, "/tables/1/scan?token="+token.Token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateOrderDecrementsStock(t *testing.T) {
	db, r, tokens := setupControllerTest(t)
	token, err := tokens.Issue(1)
	require.NoError(t, err)
	openSession(t, r, token.Token)

	w := placeOrder(t, r, token.Token, 2)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var menu models.Menu
	require.NoError(t, db.First(&menu, 1).Error)
	assert.Equal(t, 8, menu.Stock)

	var order models.Order
	require.NoError(t, db.Preload("OrderItems").First(&order).Error)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 25.00, order.TotalAmount)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, 12.50, order.OrderItems[0].UnitPrice)
}

func TestCreateOrderRejectsExcessQuantity(t *testing.T) {
	db, r, tokens := setupControllerTest(t)
	token, err := tokens.Issue(1)
	require.NoError(t, err)
	openSession(t, r, token.Token)

	w := placeOrder(t, r, token.Token, 11)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Nothing may persist from a rejected checkout.
	var orders int64
	db.Model(&models.Order{}).Count(&orders)
	assert.Zero(t, orders)
	var menu models.Menu
	require.NoError(t, db.First(&menu, 1).Error)
	assert.Equal(t, 10, menu.Stock)
}

func TestCreateOrderRequiresSession(t *testing.T) {
	_, r, tokens := setupControllerTest(t)
	token, err := tokens.Issue(1)
	require.NoError(t, err)

	w := placeOrder(t, r, token.Token, 1)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func advanceStatus(t *testing.T, r *gin.Engine, orderID uint, status string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"status": status})
	url := fmt.Sprintf("/orders/%d/status", orderID)
	req := httptest.NewRequest(http.MethodPatch, url, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOrderStatusIsMonotonic(t *testing.T) {
	db, r, tokens := setupControllerTest(t)
	token, err := tokens.Issue(1)
	require.NoError(t, err)
	openSession(t, r, token.Token)
	require.Equal(t, http.StatusCreated, placeOrder(t, r, token.Token, 1).Code)

	var order models.Order
	require.NoError(t, db.First(&order).Error)

	// pending -> completed skips processing and must be refused.
	assert.Equal(t, http.StatusConflict, advanceStatus(t, r, order.ID, models.OrderStatusCompleted).Code)

	assert.Equal(t, http.StatusOK, advanceStatus(t, r, order.ID, models.OrderStatusProcessing).Code)
	assert.Equal(t, http.StatusOK, advanceStatus(t, r, order.ID, models.OrderStatusCompleted).Code)

	// No way back once completed.
	assert.Equal(t, http.StatusConflict, advanceStatus(t, r, order.ID, models.OrderStatusProcessing).Code)
	assert.Equal(t, http.StatusConflict, advanceStatus(t, r, order.ID, models.OrderStatusCancelled).Code)
}

func TestSettledOrderIsImmutable(t *testing.T) {
	db, r, tokens := setupControllerTest(t)
	token, err := tokens.Issue(1)
	require.NoError(t, err)
	openSession(t, r, token.Token)
	require.Equal(t, http.StatusCreated, placeOrder(t, r, token.Token, 1).Code)

	var order models.Order
	require.NoError(t, db.First(&order).Error)
	require.Equal(t, http.StatusOK, advanceStatus(t, r, order.ID, models.OrderStatusProcessing).Code)
	require.Equal(t, http.StatusOK, advanceStatus(t, r, order.ID, models.OrderStatusCompleted).Code)

	require.NoError(t, db.Create(&models.Payment{
		OrderID:     order.ID,
		BatchRef:    "test-batch",
		Amount:      14.50,
		Method:      models.PaymentMethodCash,
		Status:      models.PaymentStatusCompleted,
		ProcessedBy: 1,
		PaymentDate: time.Now(),
	}).Error)

	w := advanceStatus(t, r, order.ID, models.OrderStatusCancelled)
	assert.Equal(t, http.StatusConflict, w.Code)
}
