// Package billing turns order lines into a payable bill. Everything is
// computed in integer sen (cents) so repeated additions never drift.
package billing

import (
	"errors"
	"math"
)

var ErrInvalidInput = errors.New("invalid billing input")

const (
	DiscountFixed   = "fixed"
	DiscountPercent = "percent"
)

// Line is one order line: unit price in sen and a quantity of at least 1.
type Line struct {
	UnitPrice int64
	Quantity  int
}

// Discount reduces the subtotal before tax. For DiscountFixed, Value is
// an amount in currency units; for DiscountPercent it is 0-100.
type Discount struct {
	Type  string
	Value float64
}

// Breakdown is the full bill in sen. Total already carries the cash
// rounding rule; every other field is exact.
type Breakdown struct {
	Subtotal   int64 `json:"subtotal"`
	Discount   int64 `json:"discount"`
	Tax        int64 `json:"tax"`
	ServiceTax int64 `json:"service_tax"`
	Total      int64 `json:"total"`
}

// Calculate computes subtotal, SST, service charge and the cash-rounded
// total for the given lines. The discount is applied to the subtotal
// before tax and clamped so the total can never go negative.
func Calculate(lines []Line, taxRate, serviceTaxRate float64, discount *Discount) (Breakdown, error) {
	if taxRate < 0 || serviceTaxRate < 0 {
		return Breakdown{}, ErrInvalidInput
	}

	var subtotal int64
	for _, line := range lines {
		if line.UnitPrice < 0 || line.Quantity < 1 {
			return Breakdown{}, ErrInvalidInput
		}
		subtotal += line.UnitPrice * int64(line.Quantity)
	}

	discountAmount, err := discountFor(subtotal, discount)
	if err != nil {
		return Breakdown{}, err
	}

	taxable := subtotal - discountAmount
	tax := int64(math.Round(float64(taxable) * taxRate))
	serviceTax := int64(math.Round(float64(taxable) * serviceTaxRate))

	return Breakdown{
		Subtotal:   subtotal,
		Discount:   discountAmount,
		Tax:        tax,
		ServiceTax: serviceTax,
		Total:      CashRound(taxable + tax + serviceTax),
	}, nil
}

func discountFor(subtotal int64, discount *Discount) (int64, error) {
	if discount == nil {
		return 0, nil
	}
	if discount.Value < 0 {
		return 0, ErrInvalidInput
	}

	var amount int64
	switch discount.Type {
	case DiscountFixed:
		amount = ToCents(discount.Value)
	case DiscountPercent:
		if discount.Value > 100 {
			return 0, ErrInvalidInput
		}
		amount = int64(math.Round(float64(subtotal) * discount.Value / 100))
	default:
		return 0, ErrInvalidInput
	}

	// Clamp: a discount can never exceed what was ordered.
	if amount > subtotal {
		amount = subtotal
	}
	return amount, nil
}

// ToCents converts a decimal currency amount to sen.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts sen back to a decimal currency amount.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}
