/*
Package notify plans time-triggered reminders across the unrelated entity
types the compliance engine tracks.

PURPOSE:
  Activities expire, renewal periods end, disciplinary deadlines loom,
  reinstatements have milestones, live events start at a clock time. None
  of these share an identity scheme, yet replanning must be idempotent:
  re-running the planner with unchanged inputs must produce the same set
  of reminders, with no duplicates and no orphans.

STABLE KEYS:
  Every planned entry carries a deterministic identifier:

      {kind}:{entityID}-{notificationType}.{seriesIndex}

  The kind prefix type-qualifies the entity ID, so an activity and a live
  event that happen to share an ID can never collide. Scheduling the same
  key twice replaces, never duplicates.

STATE MACHINE (per trackable entity):
  NotScheduled -> Scheduled -> (Fired | Cancelled)
  This package drives only the NotScheduled -> Scheduled transition;
  firing and cancellation belong to the Scheduling Gateway.

SEE ALSO:
  - planner.go: Pure day-based and live-event planning
  - replan.go:  Clear-all-then-regenerate orchestration
  - awards.go:  Once-ever achievement notifications (outside replan)
*/
package notify

import (
	"fmt"
	"time"

	"github.com/warp/credential-engine/ce"
)

// =============================================================================
// NOTIFICATION TYPE - Closed set of reminder classes
// =============================================================================

// Type is the reminder class. Closed set; unknown strings never enter the
// planner because every call site uses these constants.
type Type string

const (
	TypeActivityExpiry    Type = "activity_expiry"
	TypeRenewalEnd        Type = "renewal_end"
	TypeApplicationWindow Type = "application_window"
	TypeLateFee           Type = "late_fee"
	TypeDiscipline        Type = "discipline"
	TypeReinstatement     Type = "reinstatement"
	TypeLive              Type = "live"
	TypeAward             Type = "award"
)

// =============================================================================
// TARGET - Type-qualified identity for heterogeneous entities
// =============================================================================

// Target names the entity a reminder is about. Kind qualifies the ID so
// keys stay collision-free across entity types.
type Target struct {
	Kind string // "activity", "period", "discipline", "event", "award"
	ID   string
}

func ActivityTarget(id ce.ActivityID) Target { return Target{Kind: "activity", ID: string(id)} }
func PeriodTarget(id ce.PeriodID) Target     { return Target{Kind: "period", ID: string(id)} }
func ActionTarget(id ce.ActionID) Target     { return Target{Kind: "discipline", ID: string(id)} }
func EventTarget(id ce.EventID) Target       { return Target{Kind: "event", ID: string(id)} }
func AwardTarget(id ce.AwardID) Target       { return Target{Kind: "award", ID: string(id)} }

// UniqueID returns the type-qualified entity identifier.
func (t Target) UniqueID() string { return t.Kind + ":" + t.ID }

// StableKey builds the deterministic scheduling identifier for one entry
// in a reminder series.
func StableKey(target Target, typ Type, seriesIndex int) string {
	return fmt.Sprintf("%s-%s.%d", target.UniqueID(), typ, seriesIndex)
}

// =============================================================================
// PLAN ENTRY - Transient scheduling request
// =============================================================================

// PlanEntry is one scheduled reminder request. Transient: produced by the
// planner, handed to the gateway, never persisted here.
type PlanEntry struct {
	StableKey   string
	Type        Type
	Title       string
	Body        string
	TriggerAt   time.Time
	SeriesIndex int
}
