package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/billing"
	"github.com/iqbalhamzah/dinelink/config"
	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/services"
	"github.com/iqbalhamzah/dinelink/utils"
)

// ReceiptController renders receipts from the payment ledger. Receipts
// are derived on demand, never stored, so a reprint always reflects the
// ledger as settled.
type ReceiptController struct {
	DB       *gorm.DB
	Cfg      config.Config
	Payments *services.PaymentService
}

func NewReceiptController(db *gorm.DB, cfg config.Config, payments *services.PaymentService) *ReceiptController {
	return &ReceiptController{DB: db, Cfg: cfg, Payments: payments}
}

type receiptLine struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Amount    string `json:"amount"`
}

// GetReceipt rebuilds the printable receipt for a payment's batch.
func (rc *ReceiptController) GetReceipt(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("payment_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	payments, err := rc.Payments.GetBatch(uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	first := payments[0]

	var lines []receiptLine
	var billingLines []billing.Line
	var discountTotal int64
	tables := make(map[string]bool)
	for _, p := range payments {
		discountTotal += billing.ToCents(p.DiscountAmount)
		if p.Order.Table.TableNumber != "" {
			tables[p.Order.Table.TableNumber] = true
		}
		for _, item := range p.Order.OrderItems {
			unit := billing.ToCents(item.UnitPrice)
			billingLines = append(billingLines, billing.Line{UnitPrice: unit, Quantity: item.Quantity})
			lines = append(lines, receiptLine{
				Name:      item.Menu.Name,
				Quantity:  item.Quantity,
				UnitPrice: utils.FormatCurrencyMYR(item.UnitPrice),
				Amount:    utils.FormatCurrencyMYR(billing.FromCents(unit * int64(item.Quantity))),
			})
		}
	}

	// Replay the bill from the ledger; the stored row amounts already
	// carry the settled total, so the discount is replayed as fixed.
	var discount *billing.Discount
	if discountTotal > 0 {
		discount = &billing.Discount{Type: billing.DiscountFixed, Value: billing.FromCents(discountTotal)}
	}
	breakdown, err := billing.Calculate(billingLines, rc.Cfg.TaxRate, rc.Cfg.ServiceTaxRate, discount)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	tableNumbers := make([]string, 0, len(tables))
	for number := range tables {
		tableNumbers = append(tableNumbers, number)
	}

	receipt := gin.H{
		"receipt_number": fmt.Sprintf("RCP/%s/%06d", first.PaymentDate.Format("20060102"), first.ID),
		"batch_ref":      first.BatchRef,
		"payment_date":   first.PaymentDate,
		"tables":         tableNumbers,
		"cashier":        first.Cashier.Name,
		"method":         first.Method,
		"lines":          lines,
		"subtotal":       utils.FormatCurrencyMYR(billing.FromCents(breakdown.Subtotal)),
		"discount":       utils.FormatCurrencyMYR(billing.FromCents(breakdown.Discount)),
		"tax":            utils.FormatCurrencyMYR(billing.FromCents(breakdown.Tax)),
		"service_tax":    utils.FormatCurrencyMYR(billing.FromCents(breakdown.ServiceTax)),
		"total":          utils.FormatCurrencyMYR(billing.FromCents(breakdown.Total)),
	}
	if first.Method == models.PaymentMethodCash && first.CashReceived != nil {
		receipt["cash_received"] = utils.FormatCurrencyMYR(*first.CashReceived)
		if first.ChangeAmount != nil {
			receipt["change"] = utils.FormatCurrencyMYR(*first.ChangeAmount)
		}
	}
	if first.Method == models.PaymentMethodTNGPay {
		receipt["tng_reference"] = first.TNGReference
	}

	utils.RespondJSON(c, http.StatusOK, "Receipt", receipt)
}
