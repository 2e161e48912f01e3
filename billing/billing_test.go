package billing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateBasicBill(t *testing.T) {
	// 2x RM10.00 + 1x RM5.00, 6% tax, 10% service charge
	lines := []Line{
		{UnitPrice: 1000, Quantity: 2},
		{UnitPrice: 500, Quantity: 1},
	}

	breakdown, err := Calculate(lines, 0.06, 0.10, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(2500), breakdown.Subtotal)
	assert.Equal(t, int64(150), breakdown.Tax)
	assert.Equal(t, int64(250), breakdown.ServiceTax)
	assert.Equal(t, int64(0), breakdown.Discount)
	// 29.00 ends in "00" so cash rounding leaves it unchanged
	assert.Equal(t, int64(2900), breakdown.Total)
}

func TestCalculateSubtotalNoDrift(t *testing.T) {
	// 1000 random lines must sum exactly in fixed point.
	r := rand.New(rand.NewSource(42))
	lines := make([]Line, 1000)
	var want int64
	for i := range lines {
		price := int64(r.Intn(10000))
		qty := 1 + r.Intn(9)
		lines[i] = Line{UnitPrice: price, Quantity: qty}
		want += price * int64(qty)
	}

	breakdown, err := Calculate(lines, 0, 0, nil)
	assert.NoError(t, err)
	assert.Equal(t, want, breakdown.Subtotal)
}

func TestCalculateFixedDiscount(t *testing.T) {
	lines := []Line{{UnitPrice: 2000, Quantity: 1}}

	breakdown, err := Calculate(lines, 0.06, 0, &Discount{Type: DiscountFixed, Value: 5.00})
	assert.NoError(t, err)
	assert.Equal(t, int64(2000), breakdown.Subtotal)
	assert.Equal(t, int64(500), breakdown.Discount)
	// tax applies to the discounted subtotal: 15.00 * 6% = 0.90
	assert.Equal(t, int64(90), breakdown.Tax)
	assert.Equal(t, int64(1590), breakdown.Total)
}

func TestCalculatePercentDiscount(t *testing.T) {
	lines := []Line{{UnitPrice: 1000, Quantity: 4}}

	breakdown, err := Calculate(lines, 0, 0, &Discount{Type: DiscountPercent, Value: 25})
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), breakdown.Discount)
	assert.Equal(t, int64(3000), breakdown.Total)
}

func TestCalculateDiscountClamped(t *testing.T) {
	lines := []Line{{UnitPrice: 300, Quantity: 1}}

	breakdown, err := Calculate(lines, 0.06, 0.10, &Discount{Type: DiscountFixed, Value: 99.00})
	assert.NoError(t, err)
	assert.Equal(t, int64(300), breakdown.Discount)
	// fully discounted bill never goes negative
	assert.Equal(t, int64(0), breakdown.Total)
}

func TestCalculateRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name     string
		lines    []Line
		discount *Discount
	}{
		{"negative price", []Line{{UnitPrice: -100, Quantity: 1}}, nil},
		{"zero quantity", []Line{{UnitPrice: 100, Quantity: 0}}, nil},
		{"negative quantity", []Line{{UnitPrice: 100, Quantity: -2}}, nil},
		{"negative discount", []Line{{UnitPrice: 100, Quantity: 1}}, &Discount{Type: DiscountFixed, Value: -1}},
		{"percent over 100", []Line{{UnitPrice: 100, Quantity: 1}}, &Discount{Type: DiscountPercent, Value: 150}},
		{"unknown discount type", []Line{{UnitPrice: 100, Quantity: 1}}, &Discount{Type: "bogus", Value: 5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.lines, 0.06, 0.10, tc.discount)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCalculateRejectsNegativeRates(t *testing.T) {
	_, err := Calculate([]Line{{UnitPrice: 100, Quantity: 1}}, -0.06, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
