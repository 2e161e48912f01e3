package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/billing"
	"github.com/iqbalhamzah/dinelink/config"
	"github.com/iqbalhamzah/dinelink/events"
	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/utils"
)

// PaymentService settles bills. A settlement may merge orders from
// several tables into one batch; it inserts one payment row per order,
// rotates every affected table's QR token and closes diner sessions,
// all in a single transaction.
type PaymentService struct {
	db     *gorm.DB
	cfg    config.Config
	tokens *TokenService
}

// PaymentRequest carries the cashier's settlement input. ProcessedBy is
// the authenticated cashier from the request context, never ambient state.
type PaymentRequest struct {
	OrderIDs     []uint
	Method       string
	CashReceived *float64
	TNGReference string
	Discount     *billing.Discount
	ProcessedBy  uint
}

// PaymentBatch is the settlement result. BatchID is the id of the first
// inserted payment row and is the receipt lookup key.
type PaymentBatch struct {
	BatchID      uint              `json:"batch_id"`
	BatchRef     string            `json:"batch_ref"`
	Breakdown    billing.Breakdown `json:"breakdown"`
	CashReceived *float64          `json:"cash_received,omitempty"`
	ChangeAmount *float64          `json:"change_amount,omitempty"`
	Payments     []models.Payment  `json:"payments"`
}

func NewPaymentService(db *gorm.DB, cfg config.Config, tokens *TokenService) *PaymentService {
	return &PaymentService{db: db, cfg: cfg, tokens: tokens}
}

// RecordPayment applies a payment to one or more completed orders.
// All-or-nothing: any failure rolls back the whole batch.
func (s *PaymentService) RecordPayment(req PaymentRequest) (*PaymentBatch, error) {
	orderIDs := dedupe(req.OrderIDs)
	if len(orderIDs) == 0 {
		return nil, ErrInvalidPayment
	}
	if req.Method != models.PaymentMethodCash && req.Method != models.PaymentMethodTNGPay {
		return nil, ErrInvalidPayment
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	batch, rotations, err := s.recordPaymentTx(tx, orderIDs, req)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	for _, rotation := range rotations {
		s.tokens.FinishRotation(rotation)
	}
	events.BroadcastPaymentSettled(batch)
	events.BroadcastStaffNotification(fmt.Sprintf("Payment %s settled %d order(s), total %s",
		batch.BatchRef, len(batch.Payments), utils.FormatCurrencyMYR(billing.FromCents(batch.Breakdown.Total))))

	return batch, nil
}

func (s *PaymentService) recordPaymentTx(tx *gorm.DB, orderIDs []uint, req PaymentRequest) (*PaymentBatch, []*Rotation, error) {
	var orders []models.Order
	if err := tx.Preload("OrderItems").Where("id IN ?", orderIDs).Find(&orders).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load orders: %w", err)
	}
	if len(orders) != len(orderIDs) {
		return nil, nil, ErrOrderNotFound
	}

	for _, order := range orders {
		if order.Status != models.OrderStatusCompleted {
			return nil, nil, ErrOrderNotReady
		}
	}

	// At-most-once settlement: a completed payment row for any of these
	// orders means the bill was already paid.
	var settled int64
	if err := tx.Model(&models.Payment{}).
		Where("order_id IN ? AND status = ?", orderIDs, models.PaymentStatusCompleted).
		Count(&settled).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to check prior payments: %w", err)
	}
	if settled > 0 {
		return nil, nil, ErrAlreadySettled
	}

	var allLines []billing.Line
	orderSubtotals := make([]int64, len(orders))
	var combinedSubtotal int64
	for i, order := range orders {
		for _, item := range order.OrderItems {
			line := billing.Line{UnitPrice: billing.ToCents(item.UnitPrice), Quantity: item.Quantity}
			allLines = append(allLines, line)
			orderSubtotals[i] += line.UnitPrice * int64(line.Quantity)
		}
		combinedSubtotal += orderSubtotals[i]
	}

	breakdown, err := billing.Calculate(allLines, s.cfg.TaxRate, s.cfg.ServiceTaxRate, req.Discount)
	if err != nil {
		return nil, nil, err
	}

	var cashReceived, changeAmount *float64
	if req.Method == models.PaymentMethodCash {
		if req.CashReceived == nil {
			return nil, nil, ErrInsufficientTender
		}
		tendered := billing.ToCents(*req.CashReceived)
		// One-sen tolerance for float input off the terminal.
		if tendered+1 < breakdown.Total {
			return nil, nil, ErrInsufficientTender
		}
		change := tendered - breakdown.Total
		if change < 0 {
			change = 0
		}
		received := billing.FromCents(tendered)
		changed := billing.FromCents(change)
		cashReceived, changeAmount = &received, &changed
	}

	amounts := splitByShare(breakdown.Total, orderSubtotals, combinedSubtotal)
	discounts := splitByShare(breakdown.Discount, orderSubtotals, combinedSubtotal)

	batchRef := uuid.NewString()
	now := time.Now()
	discountType := ""
	if req.Discount != nil {
		discountType = req.Discount.Type
	}

	batch := &PaymentBatch{
		BatchRef:     batchRef,
		Breakdown:    breakdown,
		CashReceived: cashReceived,
		ChangeAmount: changeAmount,
	}

	for i, order := range orders {
		payment := models.Payment{
			OrderID:        order.ID,
			BatchRef:       batchRef,
			Amount:         billing.FromCents(amounts[i]),
			Method:         req.Method,
			Status:         models.PaymentStatusCompleted,
			DiscountAmount: billing.FromCents(discounts[i]),
			DiscountType:   discountType,
			TNGReference:   req.TNGReference,
			ProcessedBy:    req.ProcessedBy,
			PaymentDate:    now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		// The register keeps tendered cash and change on every row of
		// the batch so a single-row lookup can reprint the receipt.
		if req.Method == models.PaymentMethodCash {
			payment.CashReceived = cashReceived
			payment.ChangeAmount = changeAmount
		}

		if err := tx.Create(&payment).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to insert payment: %w", err)
		}
		batch.Payments = append(batch.Payments, payment)
	}
	batch.BatchID = batch.Payments[0].ID

	rotations, err := s.rotateTables(tx, orders, now)
	if err != nil {
		return nil, nil, err
	}

	notifMsg := fmt.Sprintf("Payment batch %s settled: %s", batchRef,
		utils.FormatCurrencyMYR(billing.FromCents(breakdown.Total)))
	if err := tx.Create(&models.Notification{Message: notifMsg, CreatedAt: now}).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to insert notification: %w", err)
	}

	return batch, rotations, nil
}

// rotateTables swaps the QR token of every distinct table in the batch
// and closes its active diner sessions.
func (s *PaymentService) rotateTables(tx *gorm.DB, orders []models.Order, now time.Time) ([]*Rotation, error) {
	seen := make(map[uint]bool)
	var rotations []*Rotation

	for _, order := range orders {
		if seen[order.TableID] {
			continue
		}
		seen[order.TableID] = true

		var active models.QRToken
		err := tx.Where("table_id = ? AND is_active = ?", order.TableID, true).First(&active).Error
		switch {
		case err == nil:
			rotation, rerr := s.tokens.InvalidateOnPaymentTx(tx, active.Token)
			if rerr != nil {
				return nil, rerr
			}
			rotations = append(rotations, rotation)
		case err == gorm.ErrRecordNotFound:
			// Recovery path: a prior crash left the table tokenless.
			// Issuing directly keeps the rotation idempotent.
			rotation, rerr := s.tokens.IssueTx(tx, order.TableID)
			if rerr != nil {
				return nil, rerr
			}
			rotations = append(rotations, rotation)
		default:
			return nil, fmt.Errorf("failed to load active token: %w", err)
		}

		if err := tx.Model(&models.DinerSession{}).
			Where("table_id = ? AND status = ?", order.TableID, models.SessionStatusActive).
			Updates(map[string]interface{}{"status": models.SessionStatusFinished, "updated_at": now}).Error; err != nil {
			return nil, fmt.Errorf("failed to close diner sessions: %w", err)
		}
	}
	return rotations, nil
}

// splitByShare splits total across orders in proportion to their
// subtotals; the last order absorbs the rounding remainder so the rows
// always sum to the batch total exactly.
func splitByShare(total int64, subtotals []int64, combined int64) []int64 {
	shares := make([]int64, len(subtotals))
	if len(subtotals) == 0 {
		return shares
	}

	var allocated int64
	for i := range subtotals {
		if i == len(subtotals)-1 {
			shares[i] = total - allocated
			break
		}
		if combined > 0 {
			shares[i] = total * subtotals[i] / combined
		}
		allocated += shares[i]
	}
	return shares
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	var out []uint
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// GetBatch loads every payment row sharing the batch of the given
// payment id (the receipt lookup path).
func (s *PaymentService) GetBatch(paymentID uint) ([]models.Payment, error) {
	var first models.Payment
	if err := s.db.First(&first, paymentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}

	var payments []models.Payment
	if err := s.db.
		Preload("Order").
		Preload("Order.OrderItems").
		Preload("Order.OrderItems.Menu").
		Preload("Order.Table").
		Preload("Cashier").
		Where("batch_ref = ?", first.BatchRef).
		Order("id asc").
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to load payment batch: %w", err)
	}
	return payments, nil
}
