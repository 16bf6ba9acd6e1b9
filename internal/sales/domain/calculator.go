package sales

import "github.com/shopspring/decimal"

// SaleComputation is the derived financial result of a meter pair and a
// unit price. Volume keeps full precision; currency fields are rounded
// to 2 decimal places.
type SaleComputation struct {
	LitresSold   float64
	TotalAmount  float64
	CashReceived float64
	Variance     float64
}

// ComputeSale turns meter readings and a resolved unit price into a
// validated sale computation. A nil cashReceived defaults to the
// computed total, making variance zero: cash is assumed exact unless the
// attendant counts it short or over.
func ComputeSale(opening, closing, unitPrice float64, cashReceived *float64) (SaleComputation, error) {
	if opening < 0 || closing < 0 {
		return SaleComputation{}, ErrNegativeValue
	}
	if closing < opening {
		return SaleComputation{}, ErrInvalidRange
	}
	if unitPrice <= 0 {
		return SaleComputation{}, ErrInvalidPrice
	}

	litres := decimal.NewFromFloat(closing).Sub(decimal.NewFromFloat(opening))
	total := litres.Mul(decimal.NewFromFloat(unitPrice)).Round(2)

	cash := total
	if cashReceived != nil {
		if *cashReceived < 0 {
			return SaleComputation{}, ErrNegativeValue
		}
		cash = decimal.NewFromFloat(*cashReceived).Round(2)
	}
	variance := cash.Sub(total).Round(2)

	return SaleComputation{
		LitresSold:   litres.InexactFloat64(),
		TotalAmount:  total.InexactFloat64(),
		CashReceived: cash.InexactFloat64(),
		Variance:     variance.InexactFloat64(),
	}, nil
}
