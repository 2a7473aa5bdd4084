package billing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds to two decimal places, halves away from zero.
// This is a PURE function.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// SplitEven divides total into n rounded parts of equal value.
// The rounded parts may not sum back to total; the difference is at most
// n minor units and is left uncorrected.
// This is a PURE function.
func SplitEven(total decimal.Decimal, n int) decimal.Decimal {
	if n < 1 {
		return decimal.Zero
	}
	return Round2(total.Div(decimal.NewFromInt(int64(n))))
}

// MinorUnits converts an amount to integer cents.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// FormatAmount renders an amount with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
