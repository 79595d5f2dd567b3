/*
Package ce provides the core continuing-education compliance engine.

PURPOSE:
  This package contains the pure domain types and algorithms for tracking
  continuing-education (CE) requirements across credential renewal cycles.
  Whether the issuing body measures CE in clock hours or in "units", the
  same engine handles unit reconciliation, period resolution, and
  remaining-requirement calculation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A CE quantity with a unit (e.g., 24 hours, 2.5 units)
  - Credential: A license/certification with its per-renewal requirement
  - RenewalPeriod: The window in which required CE must be accumulated
  - Activity: A CE-earning record (course, conference, self-study)
  - SpecialCategory: A mandated sub-requirement (e.g., ethics hours)
  - ReinstatementInfo: Extra-CE requirements for a lapsed credential

DESIGN PRINCIPLES:
  1. Immutability: Calculators never mutate their inputs
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing credential/period IDs
  4. Silent defaults: Missing data yields "nothing required", never a panic

USAGE:
  amount := ce.NewAmount(24, ce.UnitHours)
  cred := ce.Credential{
      ID:                 "cred-123",
      MeasurementDefault: ce.UnitHours,
      HoursPerUnit:       decimal.NewFromInt(10),
      RequiredCEs:        amount.Value,
  }

SEE ALSO:
  - units.go: Hours/units conversion rules
  - period.go: Renewal period resolution and activity linkage
  - compliance.go: Remaining-CE calculation
*/
package ce

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - CE quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

// Unit is the measurement basis a CE amount is expressed in.
// Issuing bodies disagree: some count clock hours, some count "units"
// (typically 10 clock hours per unit).
type Unit string

const (
	UnitHours Unit = "hours"
	UnitUnits Unit = "units"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func (a Amount) Zero() Amount              { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CredentialID string
type PeriodID string
type ActivityID string
type CategoryID string
type ActionID string
type EventID string
type AwardID string

// =============================================================================
// CREDENTIAL - A license or certification being tracked
// =============================================================================

// Credential is a professional license or certification. The holder must
// accumulate RequiredCEs per renewal period, measured in MeasurementDefault.
type Credential struct {
	ID   CredentialID
	Name string

	// Unit the issuing body measures CE in for this credential.
	MeasurementDefault Unit

	// Clock hours per "unit" for this credential. Must be > 0; callers
	// substitute DefaultHoursPerUnit when it is not (see units.go).
	HoursPerUnit decimal.Decimal

	// Total CE required per renewal period, in MeasurementDefault.
	// Zero means the credential has no CE requirement.
	RequiredCEs decimal.Decimal

	// Mandated sub-requirements (ethics, pain management, ...).
	SpecialCategories []SpecialCategory
}

// =============================================================================
// RENEWAL PERIOD - The window in which required CE accumulates
// =============================================================================

// RenewalPeriod is one renewal cycle of a credential.
// At most one period per credential should be "current" at a time, but the
// resolver tolerates overlapping input data (see period.go).
type RenewalPeriod struct {
	ID           PeriodID
	CredentialID CredentialID

	Start TimePoint
	End   TimePoint // End >= Start; both boundaries inclusive

	// Optional renewal-application milestones.
	ApplicationWindowStart *TimePoint
	LateFeeDate            *TimePoint
	LateFeeAmount          *decimal.Decimal

	Completed bool

	// Set when the credential lapsed and must be reinstated.
	Reinstatement *ReinstatementInfo
}

// =============================================================================
// ACTIVITY - A CE-earning record
// =============================================================================

// Activity is a single CE-earning record. It may count toward several
// credentials but is linked to at most one renewal period per pass of the
// resolver (exactly-one-containing-period rule).
type Activity struct {
	ID    ActivityID
	Title string

	// Awarded CE, >= 0 by construction.
	Awarded Amount

	Completed      bool
	CompletionDate *TimePoint

	// Certificates that lapse; drives "expiring activity" reminders.
	ExpiresAt *TimePoint

	// Credentials this activity counts toward.
	CredentialIDs []CredentialID

	// Renewal period this activity has been linked to, if any.
	PeriodID *PeriodID

	// Special category this activity is tagged with, if any.
	CategoryID *CategoryID

	// Counts toward reinstatement extra-CE rather than the normal
	// renewal requirement.
	ForReinstatement bool
}

// =============================================================================
// SPECIAL CATEGORY - Mandated CE sub-requirement
// =============================================================================

type SpecialCategory struct {
	ID           CategoryID
	CredentialID CredentialID
	Name         string

	// Required amount in MeasurementDefault. Zero = category tracked for
	// tagging only, no requirement.
	RequiredHours decimal.Decimal

	MeasurementDefault Unit
}

// =============================================================================
// REINSTATEMENT - Extra requirements for a lapsed credential
// =============================================================================

// ReinstatementInfo holds the extra-CE requirement attached to a lapsed
// renewal period. One-to-one with its period.
type ReinstatementInfo struct {
	PeriodID PeriodID

	// Extra CE required, in the credential's MeasurementDefault.
	TotalExtraCEs decimal.Decimal

	Deadline TimePoint

	// Per-category sub-requirements within the reinstatement.
	Categories []ReinstatementSpecialCat
}

// ReinstatementSpecialCat links a SpecialCategory to the amount required
// within a reinstatement.
type ReinstatementSpecialCat struct {
	CategoryID CategoryID
	Name       string

	// In the credential's MeasurementDefault.
	CEsRequired decimal.Decimal
}

// =============================================================================
// REMINDER SOURCES - Other entity types the planner watches
// =============================================================================

// DisciplinaryAction is a board sanction with a compliance deadline.
type DisciplinaryAction struct {
	ID           ActionID
	CredentialID CredentialID
	Description  string
	Deadline     TimePoint
	Resolved     bool
}

// LiveEvent is a scheduled live CE event (webinar, in-person course).
// Unlike the day-granularity entities above, it starts at a specific time.
type LiveEvent struct {
	ID           EventID
	CredentialID *CredentialID
	Title        string
	StartsAt     TimePoint // minute granularity
}

// Award is an achievement (e.g., "100 hours logged") notified at most once.
type Award struct {
	ID       AwardID
	Name     string
	EarnedAt TimePoint
}
