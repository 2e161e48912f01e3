package billing

// CashRound adjusts an amount in sen to a value payable in physical
// coins, using the tiered rule on the hundredths digit d:
//
//	d in {1,2}       -> down to the nearest 10 sen
//	d in {3,4,6,7}   -> to the nearest x5 sen
//	d in {8,9}       -> up to the next 10 sen
//	d in {0,5}       -> unchanged
//
// This is the register rule for the final payable total. The cart
// preview rounds through RoundToNearestFive instead; the two stay
// separate operations.
func CashRound(cents int64) int64 {
	if cents < 0 {
		return cents
	}
	d := cents % 10
	switch {
	case d == 1 || d == 2:
		return cents - d
	case d == 3 || d == 4 || d == 6 || d == 7:
		return cents - d + 5
	case d == 8 || d == 9:
		return cents - d + 10
	default: // 0 or 5
		return cents
	}
}

// RoundToNearestFive rounds to the nearest 5 sen. Used only for the
// customer-facing cart preview; settlement always goes through CashRound.
func RoundToNearestFive(cents int64) int64 {
	if cents < 0 {
		return cents
	}
	r := cents % 5
	if r < 3 {
		return cents - r
	}
	return cents - r + 5
}
