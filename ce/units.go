/*
units.go - Hours/units conversion rules

PURPOSE:
  Converts CE amounts between clock hours and "units". Issuing bodies that
  measure in units define how many clock hours one unit represents
  (HoursPerUnit, typically 10). Every aggregation in this package converts
  through clock hours as the common basis - amounts with different units are
  NEVER compared raw.

SILENT DEFAULT:
  A non-positive HoursPerUnit is replaced with DefaultHoursPerUnit (10)
  rather than propagated as an error. Every computation here feeds a UI
  that must always render something sensible.

EXAMPLE:
  hours := ce.ToClockHours(ce.NewAmount(2.5, ce.UnitUnits), ratio) // 25h
  units := ce.Convert(hours, ce.UnitUnits, ratio)                  // 2.5u

SEE ALSO:
  - compliance.go: Converts activity awards into the credential's unit
  - reinstatement.go: Converts requirements into clock hours
*/
package ce

import "github.com/shopspring/decimal"

// DefaultHoursPerUnit is substituted wherever a credential carries a
// non-positive ratio.
var DefaultHoursPerUnit = decimal.NewFromInt(10)

// RatioOrDefault returns hoursPerUnit when it is positive, otherwise
// DefaultHoursPerUnit. Applied once at the boundary where a ratio enters
// a computation.
func RatioOrDefault(hoursPerUnit decimal.Decimal) decimal.Decimal {
	if hoursPerUnit.IsPositive() {
		return hoursPerUnit
	}
	return DefaultHoursPerUnit
}

// ToClockHours converts an amount into clock hours.
// Hours pass through unchanged; units are multiplied by the ratio.
// Pure and total: no failure modes.
func ToClockHours(a Amount, hoursPerUnit decimal.Decimal) Amount {
	if a.Unit == UnitHours {
		return a
	}
	ratio := RatioOrDefault(hoursPerUnit)
	return Amount{Value: a.Value.Mul(ratio), Unit: UnitHours}
}

// Convert expresses an amount in the target unit, converting via clock
// hours as the common basis. Identity when the units already match.
func Convert(a Amount, to Unit, hoursPerUnit decimal.Decimal) Amount {
	if a.Unit == to {
		return a
	}
	ratio := RatioOrDefault(hoursPerUnit)
	hours := ToClockHours(a, ratio)
	if to == UnitHours {
		return hours
	}
	return Amount{Value: hours.Value.Div(ratio), Unit: UnitUnits}
}
