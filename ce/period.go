/*
period.go - Renewal period resolution and activity linkage

PURPOSE:
  Answers two questions:
  1. Which renewal period(s) are "current" for a reference date?
  2. Which renewal period does a completed activity belong to?

KEY INSIGHT:
  Containment is closed on BOTH ends. A period [Jan 1, Dec 31] contains
  activities completed exactly on Jan 1 and exactly on Dec 31. Off-by-one
  boundary bugs are the classic failure in renewal tracking, so the
  interval arithmetic lives here and nowhere else.

OVERLAPPING PERIODS:
  This resolver does not prevent overlapping periods in the input data.
  If the surrounding application allows creating overlapping renewal
  periods, CurrentPeriods can legitimately return more than one for the
  same credential, and activity assignment declines to guess: an activity
  whose completion date falls inside several candidate periods is left
  unassigned.

IDEMPOTENCY:
  Re-running assignment with the same inputs and date always yields the
  same linkage. Assignment is a pure function from (activity, periods) to
  an optional period ID.

SEE ALSO:
  - compliance.go: Uses CurrentPeriods for the IsCurrent flag
  - types.go: RenewalPeriod definition
*/
package ce

// =============================================================================
// PERIOD - Inclusive date interval
// =============================================================================

// Period is the [Start, End] interval of a renewal cycle.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if t is within [Start, End], both ends inclusive.
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// Window returns the renewal period's interval.
func (rp RenewalPeriod) Window() Period {
	return Period{Start: rp.Start, End: rp.End}
}

// IsCurrent reports whether asOf falls inside the period, both boundary
// days included.
func (rp RenewalPeriod) IsCurrent(asOf TimePoint) bool {
	return rp.Window().Contains(asOf)
}

// =============================================================================
// PERIOD RESOLVER
// =============================================================================

// PeriodResolver resolves "current" periods and links completed activities
// to the period whose window contains their completion date.
// Stateless; all methods are pure.
type PeriodResolver struct{}

// CurrentPeriods returns every period whose [Start, End] window contains
// asOf. More than one result is possible only when the input itself
// contains overlapping periods.
func (PeriodResolver) CurrentPeriods(periods []RenewalPeriod, asOf TimePoint) []RenewalPeriod {
	var current []RenewalPeriod
	for _, p := range periods {
		if p.IsCurrent(asOf) {
			current = append(current, p)
		}
	}
	return current
}

// AssignActivityToPeriod finds, for each credential the activity counts
// toward, the single period owned by that credential whose window contains
// the activity's completion date.
//
// Returns the matched period's ID, or nil when there is no match. "No
// match" covers: activity not completed, no completion date, credential
// with zero containing periods, or several containing periods (ambiguous,
// the resolver declines to guess). None of these are errors.
func (PeriodResolver) AssignActivityToPeriod(activity Activity, candidates []RenewalPeriod) *PeriodID {
	if !activity.Completed || activity.CompletionDate == nil {
		return nil
	}
	completed := *activity.CompletionDate

	for _, credID := range activity.CredentialIDs {
		var containing []RenewalPeriod
		for _, p := range candidates {
			if p.CredentialID == credID && p.Window().Contains(completed) {
				containing = append(containing, p)
			}
		}
		if len(containing) == 1 {
			id := containing[0].ID
			return &id
		}
	}
	return nil
}

// Relink recomputes the period linkage for a batch of activities.
// The returned map holds an entry for every activity whose linkage
// CHANGED: new period ID, or nil for "now unassigned". Activities whose
// linkage is unchanged are omitted, which makes the pass idempotent.
func (r PeriodResolver) Relink(activities []Activity, periods []RenewalPeriod) map[ActivityID]*PeriodID {
	changes := make(map[ActivityID]*PeriodID)
	for _, a := range activities {
		assigned := r.AssignActivityToPeriod(a, periods)
		if !samePeriodRef(a.PeriodID, assigned) {
			changes[a.ID] = assigned
		}
	}
	return changes
}

func samePeriodRef(a, b *PeriodID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
