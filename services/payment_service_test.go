package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/billing"
	"github.com/iqbalhamzah/dinelink/config"
	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/utils"
)

func setupPaymentTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	err = db.AutoMigrate(
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
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	db.Create(&models.User{Name: "Aina", Email: "aina@dinelink.test", Password: "x", Role: models.RoleCashier})
	db.Create(&models.Table{TableNumber: "T1", Status: models.TableStatusActive})
	db.Create(&models.Table{TableNumber: "T2", Status: models.TableStatusActive})
	db.Create(&models.Menu{CategoryID: 1, Name: "Nasi Lemak", Price: 10.00, Stock: 100})
	db.Create(&models.Menu{CategoryID: 1, Name: "Teh Tarik", Price: 5.00, Stock: 100})
	return db
}

func newPaymentService(db *gorm.DB) (*PaymentService, *TokenService) {
	cfg := config.Config{
		QRTokenTTL:     2 * time.Hour,
		TaxRate:        0.06,
		ServiceTaxRate: 0.10,
		BaseURL:        "http://localhost:8080",
	}
	tokens := NewTokenService(db, cfg, nil)
	return NewPaymentService(db, cfg, tokens), tokens
}

// seedCompletedOrder creates a kitchen-done order on the given table:
// 2x RM10.00 + 1x RM5.00 = RM25.00 subtotal.
func seedCompletedOrder(db *gorm.DB, tableID uint) uint {
	order := models.Order{
		TableID:     tableID,
		Status:      models.OrderStatusCompleted,
		TotalAmount: 25.00,
	}
	db.Create(&order)
	db.Create(&models.OrderItem{OrderID: order.ID, MenuID: 1, Quantity: 2, UnitPrice: 10.00})
	db.Create(&models.OrderItem{OrderID: order.ID, MenuID: 2, Quantity: 1, UnitPrice: 5.00})
	return order.ID
}

func TestRecordCashPayment(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, tokens := newPaymentService(db)
	orderID := seedCompletedOrder(db, 1)
	issued, _ := tokens.Issue(1)

	tendered := 30.00
	batch, err := svc.RecordPayment(PaymentRequest{
		OrderIDs:     []uint{orderID},
		Method:       models.PaymentMethodCash,
		CashReceived: &tendered,
		ProcessedBy:  1,
	})
	assert.NoError(t, err)

	// subtotal 25.00, SST 1.50, service 2.50 -> 29.00, ends in 00 so
	// cash rounding leaves it alone.
	assert.Equal(t, int64(2500), batch.Breakdown.Subtotal)
	assert.Equal(t, int64(150), batch.Breakdown.Tax)
	assert.Equal(t, int64(250), batch.Breakdown.ServiceTax)
	assert.Equal(t, int64(2900), batch.Breakdown.Total)
	assert.NotNil(t, batch.ChangeAmount)
	assert.InDelta(t, 1.00, *batch.ChangeAmount, 0.001)

	assert.Len(t, batch.Payments, 1)
	assert.Equal(t, batch.Payments[0].ID, batch.BatchID)
	assert.InDelta(t, 29.00, batch.Payments[0].Amount, 0.001)

	// Settlement rotated the table token.
	_, err = tokens.Validate(1, issued.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	var active int64
	db.Model(&models.QRToken{}).Where("table_id = ? AND is_active = ?", 1, true).Count(&active)
	assert.Equal(t, int64(1), active)
}

func TestRecordPaymentIsAtMostOnce(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newPaymentService(db)
	orderID := seedCompletedOrder(db, 1)

	tendered := 50.00
	_, err := svc.RecordPayment(PaymentRequest{
		OrderIDs: []uint{orderID}, Method: models.PaymentMethodCash,
		CashReceived: &tendered, ProcessedBy: 1,
	})
	assert.NoError(t, err)

	_, err = svc.RecordPayment(PaymentRequest{
		OrderIDs: []uint{orderID}, Method: models.PaymentMethodCash,
		CashReceived: &tendered, ProcessedBy: 1,
	})
	assert.ErrorIs(t, err, ErrAlreadySettled)

	// No second ledger row appeared.
	var count int64
	db.Model(&models.Payment{}).Where("order_id = ?", orderID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRecordPaymentInsufficientTender(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newPaymentService(db)
	orderID := seedCompletedOrder(db, 1)

	short := 20.00
	_, err := svc.RecordPayment(PaymentRequest{
		OrderIDs: []uint{orderID}, Method: models.PaymentMethodCash,
		CashReceived: &short, ProcessedBy: 1,
	})
	assert.ErrorIs(t, err, ErrInsufficientTender)

	// Within one sen is accepted.
	nearly := 28.99
	batch, err := svc.RecordPayment(PaymentRequest{
		OrderIDs: []uint{orderID}, Method: models.PaymentMethodCash,
		CashReceived: &nearly, ProcessedBy: 1,
	})
	assert.NoError(t, err)
	assert.InDelta(t, 0.0, *batch.ChangeAmount, 0.001)
}

func TestRecordPaymentRequiresCompletedOrders(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newPaymentService(db)

	order := models.Order{TableID: 1, Status: models.OrderStatusProcessing}
	db.Create(&order)
	db.Create(&models.OrderItem{OrderID: order.ID, MenuID: 1, Quantity: 1, UnitPrice: 10.00})

	tendered := 50.00
	_, err := svc.RecordPayment(PaymentRequest{
		OrderIDs: []uint{order.ID}, Method: models.PaymentMethodCash,
		CashReceived: &tendered, ProcessedBy: 1,
	})
	assert.ErrorIs(t, err, ErrOrderNotReady)
}

func TestRecordPaymentTNGPay(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newPaymentService(db)
	orderID := seedCompletedOrder(db, 1)

	batch, err := svc.RecordPayment(PaymentRequest{
		OrderIDs:     []uint{orderID},
		Method:       models.PaymentMethodTNGPay,
		TNGReference: "TNG-20260828-0042",
		ProcessedBy:  1,
	})
	assert.NoError(t, err)
	assert.Nil(t, batch.CashReceived)
	assert.Equal(t, "TNG-20260828-0042", batch.Payments[0].TNGReference)
}

func TestMergedBillAcrossTables(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, tokens := newPaymentService(db)

	orderA := seedCompletedOrder(db, 1) // RM25.00 subtotal
	orderB := models.Order{TableID: 2, Status: models.OrderStatusCompleted, TotalAmount: 10.00}
	db.Create(&orderB)
	db.Create(&models.OrderItem{OrderID: orderB.ID, MenuID: 1, Quantity: 1, UnitPrice: 10.00})

	tokenA, _ := tokens.Issue(1)
	tokenB, _ := tokens.Issue(2)

	tendered := 100.00
	batch, err := svc.RecordPayment(PaymentRequest{
		OrderIDs:     []uint{orderA, orderB.ID},
		Method:       models.PaymentMethodCash,
		CashReceived: &tendered,
		ProcessedBy:  1,
	})
	assert.NoError(t, err)

	// One payment row per order, same batch ref, same cashier.
	assert.Len(t, batch.Payments, 2)
	assert.Equal(t, batch.Payments[0].BatchRef, batch.Payments[1].BatchRef)
	assert.Equal(t, uint(1), batch.Payments[0].ProcessedBy)
	assert.Equal(t, uint(1), batch.Payments[1].ProcessedBy)

	// Per-order amounts sum exactly to the batch total.
	sum := billing.ToCents(batch.Payments[0].Amount) + billing.ToCents(batch.Payments[1].Amount)
	assert.Equal(t, batch.Breakdown.Total, sum)

	// Both tables rotated.
	_, err = tokens.Validate(1, tokenA.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = tokens.Validate(2, tokenB.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestMergedBillAllOrNothing(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newPaymentService(db)

	orderA := seedCompletedOrder(db, 1)
	// Second order is still cooking; the whole batch must fail and the
	// first order must stay unsettled.
	orderB := models.Order{TableID: 2, Status: models.OrderStatusProcessing}
	db.Create(&orderB)
	db.Create(&models.OrderItem{OrderID: orderB.ID, MenuID: 1, Quantity: 1, UnitPrice: 10.00})

	tendered := 100.00
	_, err := svc.RecordPayment(PaymentRequest{
		OrderIDs:     []uint{orderA, orderB.ID},
		Method:       models.PaymentMethodCash,
		CashReceived: &tendered,
		ProcessedBy:  1,
	})
	assert.ErrorIs(t, err, ErrOrderNotReady)

	var count int64
	db.Model(&models.Payment{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestRecordPaymentWithDiscount(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newPaymentService(db)
	orderID := seedCompletedOrder(db, 1)

	tendered := 50.00
	batch, err := svc.RecordPayment(PaymentRequest{
		OrderIDs:     []uint{orderID},
		Method:       models.PaymentMethodCash,
		CashReceived: &tendered,
		Discount:     &billing.Discount{Type: billing.DiscountFixed, Value: 5.00},
		ProcessedBy:  1,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(500), batch.Breakdown.Discount)
	// (25.00 - 5.00) * 1.16 = 23.20, already a coin amount.
	assert.Equal(t, int64(2320), batch.Breakdown.Total)
	assert.InDelta(t, 5.00, batch.Payments[0].DiscountAmount, 0.001)
}

func TestRecordPaymentValidation(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newPaymentService(db)

	_, err := svc.RecordPayment(PaymentRequest{Method: models.PaymentMethodCash, ProcessedBy: 1})
	assert.ErrorIs(t, err, ErrInvalidPayment)

	_, err = svc.RecordPayment(PaymentRequest{OrderIDs: []uint{1}, Method: "cheque", ProcessedBy: 1})
	assert.ErrorIs(t, err, ErrInvalidPayment)

	tendered := 10.00
	_, err = svc.RecordPayment(PaymentRequest{
		OrderIDs: []uint{999}, Method: models.PaymentMethodCash,
		CashReceived: &tendered, ProcessedBy: 1,
	})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
