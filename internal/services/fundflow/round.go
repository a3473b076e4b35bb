package fundflow

import "github.com/shopspring/decimal"

// round and scale round half to even on the decimal value, the way the
// upstream dataframes round.
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).RoundBank(places).InexactFloat64()
}

func scale(v, divisor float64, places int32) float64 {
	return decimal.NewFromFloat(v).Div(decimal.NewFromFloat(divisor)).RoundBank(places).InexactFloat64()
}
