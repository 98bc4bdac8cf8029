package calculator

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// round6 rounds to 6 decimal places to strip floating point noise. Nil,
// NaN and infinities come back as nil.
//
// The exact binary value is rounded, half away from zero, so 1.0000015
// (stored just below the half) becomes 1.000001.
func round6(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	r, _ := exactDecimal(*v).Round(6).Float64()
	return &r
}

// exactDecimal converts f without first shortening it to its shortest
// decimal form. f = m * 2^e, and for e < 0 that is m * 5^-e * 10^e.
func exactDecimal(f float64) decimal.Decimal {
	frac, exp := math.Frexp(f)
	m := big.NewInt(int64(frac * (1 << 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(m.Lsh(m, uint(exp)), 0)
	}
	pow := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil)
	return decimal.NewFromBigInt(m.Mul(m, pow), int32(exp))
}
