package services

import "github.com/shopspring/decimal"

// Efficiency returns actual/theoretical*100, or nil when no usable rating is
// available. The value is neither clamped nor rounded.
func Efficiency(actual float64, theoretical *float64) *float64 {
	if theoretical == nil || *theoretical <= 0 {
		return nil
	}
	eff := actual / *theoretical * 100
	return &eff
}

// RoundForDisplay rounds to two decimals. Stored values keep full precision.
func RoundForDisplay(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// RoundPtrForDisplay is RoundForDisplay for nullable values.
func RoundPtrForDisplay(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := RoundForDisplay(*v)
	return &r
}
