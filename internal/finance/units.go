package finance

import (
	"fmt"
	"math"
	"strconv"
)

// Unit is a recognized measurement unit for ingredient quantities.
type Unit string

const (
	UnitGram       Unit = "g"
	UnitKilogram   Unit = "kg"
	UnitMilliliter Unit = "ml"
	UnitLiter      Unit = "l"
	UnitPiece      Unit = "pcs"
)

// Units lists every recognized unit, in form-select order.
func Units() []Unit {
	return []Unit{UnitGram, UnitKilogram, UnitMilliliter, UnitLiter, UnitPiece}
}

// Valid reports whether u is one of the recognized units.
func (u Unit) Valid() bool {
	switch u {
	case UnitGram, UnitKilogram, UnitMilliliter, UnitLiter, UnitPiece:
		return true
	}
	return false
}

// FormatQuantity renders an amount at the most readable scale for its unit
// family: grams promote to kilograms and milliliters to liters at 1000, shown
// with two decimals; base-scale mass/volume and pieces are shown whole.
// Unrecognized units pass the raw number through unconverted.
func FormatQuantity(amount float64, unit Unit) string {
	switch unit {
	case UnitGram:
		if math.Abs(amount) >= 1000 {
			return fmt.Sprintf("%.2f kg", amount/1000)
		}
		return fmt.Sprintf("%.0f g", amount)
	case UnitKilogram:
		return fmt.Sprintf("%.2f kg", amount)
	case UnitMilliliter:
		if math.Abs(amount) >= 1000 {
			return fmt.Sprintf("%.2f l", amount/1000)
		}
		return fmt.Sprintf("%.0f ml", amount)
	case UnitLiter:
		return fmt.Sprintf("%.2f l", amount)
	case UnitPiece:
		return fmt.Sprintf("%.0f pcs", amount)
	default:
		return strconv.FormatFloat(amount, 'f', -1, 64)
	}
}
