package domain

import (
	"fmt"
	"math"

	dErrors "dustledger/pkg/errors"
)

// AmountScale is the precision multiplier between display units and the
// int64 minor units every balance and transaction amount is stored in.
// 1.000 dust == 1000 minor units.
const AmountScale = 1000

// Amount is a quantity of dust in minor units. Arithmetic on Amount never
// touches floating point; floats appear only at the display boundary.
type Amount int64

// AmountFromFloat converts a display-unit value into minor units, rounding
// half away from zero.
func AmountFromFloat(v float64) Amount {
	return Amount(math.Round(v * AmountScale))
}

// ParseAmount validates and converts a display-unit value.
func ParseAmount(v float64) (Amount, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "amount is not a finite number")
	}
	return AmountFromFloat(v), nil
}

// Float returns the display-unit representation.
func (a Amount) Float() float64 {
	return float64(a) / AmountScale
}

// MulRatio scales the amount by num/den using integer arithmetic, rounding
// half away from zero. den must be positive.
func (a Amount) MulRatio(num, den int64) Amount {
	if den <= 0 {
		return 0
	}
	product := int64(a) * num
	half := den / 2
	if product >= 0 {
		return Amount((product + half) / den)
	}
	return Amount((product - half) / den)
}

// MulRate scales the amount by a fractional rate such as a burn rate or APR.
// The rate is fixed to six decimal places before multiplying so results are
// deterministic across platforms.
func (a Amount) MulRate(rate float64) Amount {
	const rateScale = 1_000_000
	return a.MulRatio(int64(math.Round(rate*rateScale)), rateScale)
}

func (a Amount) String() string {
	return fmt.Sprintf("%.3f", a.Float())
}
