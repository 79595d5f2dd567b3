/*
compliance.go - Remaining-CE calculation

PURPOSE:
  Computes how much CE is still outstanding for a renewal period, overall
  and per mandated special category. This is the central calculation that
  answers "how far am I from renewing?".

CALCULATION:
  1. Resolve the credential's requirement, default unit, and ratio
  2. Filter activities: linked to the period, completed, award > 0
  3. Convert each award into the credential's default unit (units.go)
  4. Remaining = required - sum(converted)

SIGNED REMAINDERS:
  Remaining is NOT clamped at zero. A negative remainder means
  over-completion and is surfaced so the caller can display surplus.
  The same rule applies to the per-category path; "outstanding" maps in
  reinstatement.go list only positive deficits because their contract is
  "what is still owed".

NOTHING REQUIRED:
  A credential with RequiredCEs <= 0, a period without a credential, or a
  credential without special categories all yield the "nothing required"
  terminal value (zero remaining / empty map). These are valid states,
  never errors - an empty result set is treated identically to "nothing
  to compute", which is safe because CE amounts are never negative by
  construction.

SEE ALSO:
  - reinstatement.go: Extra-CE calculation for lapsed credentials
  - period.go: IsCurrent resolution
*/
package ce

import "github.com/shopspring/decimal"

// =============================================================================
// OVERALL COMPLIANCE
// =============================================================================

// OverallCompliance is the overall remaining-CE result for one renewal
// period.
type OverallCompliance struct {
	CredentialID CredentialID
	PeriodID     PeriodID

	// Required - earned, in Unit. Negative means surplus.
	Remaining Amount

	// Total converted CE earned toward this period.
	Earned Amount

	// Requirement the remainder was computed against.
	Required Amount

	// True iff the period contains the reference date.
	IsCurrent bool
}

// CategoryCompliance is the remaining amount for one special category.
type CategoryCompliance struct {
	CategoryID CategoryID
	Name       string

	// Required - earned, in the category's unit. Negative means surplus.
	Remaining Amount
	Earned    Amount
	Required  Amount
}

// =============================================================================
// COMPLIANCE CALCULATOR
// =============================================================================

// ComplianceCalculator computes remaining CE from immutable snapshots of
// the credential's periods and activities. Pure and side-effect-free; safe
// for concurrent use.
type ComplianceCalculator struct {
	Resolver PeriodResolver
}

// RemainingOverallCE computes the overall remaining requirement for a
// renewal period.
//
// allPeriods must contain the credential's renewal periods (used to decide
// IsCurrent); activities may be the full activity set - anything not
// linked to the period is ignored.
func (c ComplianceCalculator) RemainingOverallCE(
	cred Credential,
	renewal RenewalPeriod,
	allPeriods []RenewalPeriod,
	activities []Activity,
	asOf TimePoint,
) OverallCompliance {
	unit := cred.MeasurementDefault
	if unit == "" {
		unit = UnitHours
	}

	// "Nothing required" terminal state.
	if !cred.RequiredCEs.IsPositive() {
		zero := Amount{Value: decimal.Zero, Unit: unit}
		return OverallCompliance{
			CredentialID: cred.ID,
			PeriodID:     renewal.ID,
			Remaining:    zero,
			Earned:       zero,
			Required:     zero,
			IsCurrent:    false,
		}
	}

	ratio := RatioOrDefault(cred.HoursPerUnit)
	earned := Amount{Value: decimal.Zero, Unit: unit}
	for _, a := range activities {
		if !countsTowardPeriod(a, renewal.ID) {
			continue
		}
		earned = earned.Add(Convert(a.Awarded, unit, ratio))
	}

	required := Amount{Value: cred.RequiredCEs, Unit: unit}
	isCurrent := false
	for _, p := range c.Resolver.CurrentPeriods(allPeriods, asOf) {
		if p.ID == renewal.ID {
			isCurrent = true
			break
		}
	}

	return OverallCompliance{
		CredentialID: cred.ID,
		PeriodID:     renewal.ID,
		Remaining:    required.Sub(earned),
		Earned:       earned,
		Required:     required,
		IsCurrent:    isCurrent,
	}
}

// RemainingSpecialCategoryCE computes the remaining requirement per special
// category of the renewal's credential, keyed by category name.
//
// Categories with a zero requirement are omitted. A credential with no
// special categories yields an empty map, not an error.
func (c ComplianceCalculator) RemainingSpecialCategoryCE(
	cred Credential,
	renewal RenewalPeriod,
	activities []Activity,
) map[string]CategoryCompliance {
	out := make(map[string]CategoryCompliance)
	ratio := RatioOrDefault(cred.HoursPerUnit)

	for _, cat := range cred.SpecialCategories {
		if !cat.RequiredHours.IsPositive() {
			continue
		}
		unit := cat.MeasurementDefault
		if unit == "" {
			unit = cred.MeasurementDefault
		}
		if unit == "" {
			unit = UnitHours
		}

		earned := Amount{Value: decimal.Zero, Unit: unit}
		for _, a := range activities {
			if !countsTowardPeriod(a, renewal.ID) {
				continue
			}
			if a.CategoryID == nil || *a.CategoryID != cat.ID {
				continue
			}
			earned = earned.Add(Convert(a.Awarded, unit, ratio))
		}

		required := Amount{Value: cat.RequiredHours, Unit: unit}
		out[cat.Name] = CategoryCompliance{
			CategoryID: cat.ID,
			Name:       cat.Name,
			Remaining:  required.Sub(earned),
			Earned:     earned,
			Required:   required,
		}
	}
	return out
}

// countsTowardPeriod is the shared eligibility filter: linked to the
// period, completed, positive award. Reinstatement-flagged activities
// count toward the extra-CE requirement instead (reinstatement.go).
func countsTowardPeriod(a Activity, periodID PeriodID) bool {
	if a.PeriodID == nil || *a.PeriodID != periodID {
		return false
	}
	if !a.Completed {
		return false
	}
	if a.ForReinstatement {
		return false
	}
	return a.Awarded.IsPositive()
}
