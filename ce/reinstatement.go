/*
reinstatement.go - Extra-CE calculation for lapsed credentials

PURPOSE:
  A lapsed credential is restored by earning extra CE beyond the normal
  renewal requirement. This file computes the outstanding extra-CE
  position, overall and per sub-category, always in CLOCK HOURS: boards
  state reinstatement requirements in hours even when the credential
  normally measures in units, so a units-measured requirement is expanded
  through the credential's ratio first.

TWO-PASS STRUCTURE:
  The per-category status builds two parallel maps - required hours and
  earned hours per sub-requirement - and only then diffs them. Category
  matching and unit conversion stay isolated from the comparison logic so
  each can be tested independently.

OUTSTANDING MAP:
  The outstanding map lists only positive deficits: its contract is "what
  is still owed". Met covers the rest, including the trivial case of zero
  sub-requirements. Scalar results (Required/Earned) stay unclamped like
  every other remainder in this package.

SEE ALSO:
  - compliance.go: Normal-renewal remaining CE
  - units.go: Clock-hour expansion
*/
package ce

import "github.com/shopspring/decimal"

// =============================================================================
// REINSTATEMENT REQUIREMENT - Overall position
// =============================================================================

// ReinstatementRequirement is the overall extra-CE position for a lapsed
// period, in clock hours.
type ReinstatementRequirement struct {
	PeriodID PeriodID

	// TotalExtraCEs expanded into clock hours.
	Required Amount

	// Clock hours earned from reinstatement-flagged activities linked to
	// the period.
	Earned Amount
}

// Remaining returns Required - Earned (signed; negative means surplus).
func (r ReinstatementRequirement) Remaining() Amount {
	return r.Required.Sub(r.Earned)
}

// CategoryStatus is the per-sub-requirement result of the two-pass diff.
type CategoryStatus struct {
	// True iff every required entry has earned >= required. Trivially
	// true with zero required entries.
	Met bool

	// Positive deficits only, in clock hours, keyed by category ID.
	// Empty when Met.
	Outstanding map[CategoryID]Amount
}

// =============================================================================
// REINSTATEMENT CALCULATOR
// =============================================================================

// ReinstatementCalculator computes extra-CE positions. Pure; safe for
// concurrent use.
type ReinstatementCalculator struct{}

// Requirement computes the overall extra-CE requirement and what has been
// earned against it.
//
// A period without reinstatement info, or without a credential, yields the
// zero position - "nothing required" is a valid terminal state.
func (ReinstatementCalculator) Requirement(
	cred *Credential,
	renewal RenewalPeriod,
	activities []Activity,
) ReinstatementRequirement {
	zero := Amount{Value: decimal.Zero, Unit: UnitHours}
	if renewal.Reinstatement == nil || cred == nil {
		return ReinstatementRequirement{PeriodID: renewal.ID, Required: zero, Earned: zero}
	}

	ratio := RatioOrDefault(cred.HoursPerUnit)
	required := requirementHours(renewal.Reinstatement.TotalExtraCEs, cred.MeasurementDefault, ratio)

	earned := zero
	for _, a := range activities {
		if !countsTowardReinstatement(a, renewal.ID) {
			continue
		}
		earned = earned.Add(ToClockHours(a.Awarded, ratio))
	}

	return ReinstatementRequirement{PeriodID: renewal.ID, Required: required, Earned: earned}
}

// SpecialCategoryStatus runs the two-pass required/earned diff across the
// reinstatement's sub-requirements.
func (ReinstatementCalculator) SpecialCategoryStatus(
	cred *Credential,
	renewal RenewalPeriod,
	activities []Activity,
) CategoryStatus {
	if renewal.Reinstatement == nil || cred == nil {
		return CategoryStatus{Met: true, Outstanding: map[CategoryID]Amount{}}
	}
	ratio := RatioOrDefault(cred.HoursPerUnit)

	// Pass 1a: required hours per sub-requirement.
	required := make(map[CategoryID]Amount)
	for _, sub := range renewal.Reinstatement.Categories {
		if !sub.CEsRequired.IsPositive() {
			continue
		}
		hours := requirementHours(sub.CEsRequired, cred.MeasurementDefault, ratio)
		if prev, ok := required[sub.CategoryID]; ok {
			hours = prev.Add(hours)
		}
		required[sub.CategoryID] = hours
	}

	// Pass 1b: earned hours per category, converted identically.
	// Unlike the overall pass, category credit accrues from ANY completed
	// activity linked to the period and tagged with the category; the
	// reinstatement flag gates only the overall extra-CE total.
	earned := make(map[CategoryID]Amount)
	for _, a := range activities {
		if a.PeriodID == nil || *a.PeriodID != renewal.ID || a.CategoryID == nil {
			continue
		}
		if !a.Completed || !a.Awarded.IsPositive() {
			continue
		}
		if _, tracked := required[*a.CategoryID]; !tracked {
			continue
		}
		hours := ToClockHours(a.Awarded, ratio)
		if prev, ok := earned[*a.CategoryID]; ok {
			hours = prev.Add(hours)
		}
		earned[*a.CategoryID] = hours
	}

	// Pass 2: diff.
	status := CategoryStatus{Met: true, Outstanding: make(map[CategoryID]Amount)}
	for catID, req := range required {
		got, ok := earned[catID]
		if !ok {
			got = req.Zero()
		}
		deficit := req.Sub(got)
		if deficit.IsPositive() {
			status.Met = false
			status.Outstanding[catID] = deficit
		}
	}
	return status
}

// requirementHours expands a requirement stated in the credential's
// default unit into clock hours.
func requirementHours(amount decimal.Decimal, unit Unit, ratio decimal.Decimal) Amount {
	if unit == UnitUnits {
		return Amount{Value: amount.Mul(ratio), Unit: UnitHours}
	}
	return Amount{Value: amount, Unit: UnitHours}
}

// countsTowardReinstatement: linked to the period, completed, positive
// award, and explicitly flagged for reinstatement.
func countsTowardReinstatement(a Activity, periodID PeriodID) bool {
	if a.PeriodID == nil || *a.PeriodID != periodID {
		return false
	}
	if !a.Completed || !a.ForReinstatement {
		return false
	}
	return a.Awarded.IsPositive()
}
