package draw

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Collected is the revenue of a raffle: sold tickets times ticket price.
// Pending tickets are not counted until their payment is confirmed.
func Collected(sold int, price decimal.Decimal) decimal.Decimal {
	if sold <= 0 {
		return decimal.Zero
	}
	return price.Mul(decimal.NewFromInt(int64(sold)))
}

// PrizePayout is percent of collected, truncated to cents.  The percent
// is clamped to 0..100 so the payout never exceeds what was collected.
func PrizePayout(collected decimal.Decimal, percent int) decimal.Decimal {
	if percent <= 0 || collected.Sign() <= 0 {
		return decimal.Zero
	}
	if percent > 100 {
		percent = 100
	}
	return collected.Mul(decimal.NewFromInt(int64(percent))).Div(hundred).Truncate(2)
}
