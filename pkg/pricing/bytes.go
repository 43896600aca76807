// Package pricing converts bridge-reported donation volumes into currency amounts.
package pricing

import "github.com/shopspring/decimal"

// BytesPerUnit is the number of bytes the exchange rate is quoted against.
const BytesPerUnit = 1_000_000_000

var bytesPerUnit = decimal.NewFromInt(BytesPerUnit)

// BytesToUSD converts a byte count into USD at rate (USD per BytesPerUnit bytes),
// rounded to cents with half-away-from-zero rounding.
func BytesToUSD(bytes int64, rate decimal.Decimal) decimal.Decimal {
	if bytes == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(bytes).Div(bytesPerUnit).Mul(rate).Round(2)
}
