package models

import "time"

const (
	PaymentMethodCash   = "cash"
	PaymentMethodTNGPay = "tng_pay"

	PaymentStatusCompleted = "completed"
)

// Payment is the append-only revenue ledger. One row per settled order;
// a merged-table bill produces one row per order sharing a BatchRef.
// Rows are never mutated or deleted.
type Payment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrderID        uint      `gorm:"not null;index" json:"order_id"`
	Order          Order     `gorm:"foreignKey:OrderID" json:"order"`
	BatchRef       string    `gorm:"type:varchar(36);not null;index" json:"batch_ref"`
	Amount         float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method         string    `gorm:"type:varchar(20);not null" json:"method"`
	Status         string    `gorm:"type:varchar(20);not null;default:'completed'" json:"status"`
	CashReceived   *float64  `gorm:"type:decimal(10,2)" json:"cash_received,omitempty"`
	ChangeAmount   *float64  `gorm:"type:decimal(10,2)" json:"change_amount,omitempty"`
	DiscountAmount float64   `gorm:"type:decimal(10,2);not null;default:0.00" json:"discount_amount"`
	DiscountType   string    `gorm:"type:varchar(10)" json:"discount_type,omitempty"`
	TNGReference   string    `gorm:"type:varchar(100)" json:"tng_reference,omitempty"`
	ProcessedBy    uint      `gorm:"not null" json:"processed_by"`
	Cashier        User      `gorm:"foreignKey:ProcessedBy" json:"-"`
	PaymentDate    time.Time `gorm:"not null" json:"payment_date"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}
