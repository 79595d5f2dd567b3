/*
planner.go - Pure reminder planning functions

PURPOSE:
  Converts one deadline-bearing entity into 0..4 PlanEntry values. Pure
  and side-effect-free: the same inputs and the same "now" always produce
  the same entries, which is what makes replanning idempotent.

DAY-BASED PLANNING:
  Each entry's trigger is startOfDay(anchor) minus its lead days, plus a
  fixed time-of-day offset (morning/afternoon/evening). When a custom
  anchor is supplied, the primary entry fires on the custom day instead -
  the lead becomes the anchor-to-custom-day difference, negated so the
  entry lands on the custom day itself.

PAST TRIGGERS:
  Entries whose computed trigger is not strictly in the future are dropped
  silently. Reminders are never scheduled retroactively, and one past
  entry never aborts the rest of the pass.

SEE ALSO:
  - replan.go: Applies these functions across every watched entity type
  - config.go: Where the lead values come from
*/
package notify

import (
	"time"

	"github.com/warp/credential-engine/ce"
)

// =============================================================================
// DAY-BASED PLANNING
// =============================================================================

// DayPlan is the input to PlanForDayBased.
type DayPlan struct {
	Target Target
	Type   Type
	Title  string
	Body   string

	// Day the reminder counts down to (deadline, expiry, period end).
	Anchor ce.TimePoint

	LeadDaysPrimary   int
	LeadDaysSecondary int
	TimeOfDay         ce.TimeOfDay

	// Only plan the primary entry.
	SingleOnly bool

	// When set, the primary entry fires on this day instead of
	// anchor - leadDaysPrimary (e.g., "application window opens").
	CustomAnchor *ce.TimePoint
}

// PlanForDayBased computes up to 2 day-anchored entries for one entity.
// Entries with a non-positive lead, and entries whose trigger time is not
// strictly after now, are dropped.
func PlanForDayBased(p DayPlan, now time.Time) []PlanEntry {
	offset := p.TimeOfDay.Offset()
	anchorDay := p.Anchor.StartOfDay()

	var entries []PlanEntry

	// Non-positive day leads mean "skip that entry", the same rule the
	// minute leads follow. A custom anchor carries its own day, so it is
	// exempt.
	if p.LeadDaysPrimary > 0 || p.CustomAnchor != nil {
		primaryDay := anchorDay.AddDays(-p.LeadDaysPrimary)
		if p.CustomAnchor != nil {
			// Negate the anchor-to-custom difference: the entry lands on
			// the custom day itself.
			lead := ce.DaysBetween(p.CustomAnchor.StartOfDay(), anchorDay)
			primaryDay = anchorDay.AddDays(-lead)
		}
		if e, ok := dayEntry(p, primaryDay, offset, 0, now); ok {
			entries = append(entries, e)
		}
	}

	if !p.SingleOnly && p.LeadDaysSecondary > 0 {
		secondaryDay := anchorDay.AddDays(-p.LeadDaysSecondary)
		if e, ok := dayEntry(p, secondaryDay, offset, 1, now); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

func dayEntry(p DayPlan, day ce.TimePoint, offset time.Duration, idx int, now time.Time) (PlanEntry, bool) {
	triggerAt := day.StartOfDay().Time.Add(offset)
	if !triggerAt.After(now) {
		return PlanEntry{}, false
	}
	return PlanEntry{
		StableKey:   StableKey(p.Target, p.Type, idx),
		Type:        p.Type,
		Title:       p.Title,
		Body:        p.Body,
		TriggerAt:   triggerAt,
		SeriesIndex: idx,
	}, true
}

// =============================================================================
// LIVE EVENT PLANNING
// =============================================================================

// LivePlan is the input to PlanForLiveEvent.
type LivePlan struct {
	Target  Target
	EventAt ce.TimePoint // minute granularity

	LeadMinutesPrimary   int
	LeadMinutesSecondary int

	// Day-based entries ahead of the event day.
	LeadDaysPrimary   int
	LeadDaysSecondary int
	TimeOfDay         ce.TimeOfDay

	DayTitle  string
	DayBody   string
	TimeTitle string
	TimeBody  string
}

// PlanForLiveEvent plans up to 2 day-based entries plus up to 2
// minutes-before entries for a live event. Minute entries with a
// non-positive lead, and any entry already in the past, are dropped.
func PlanForLiveEvent(p LivePlan, now time.Time) []PlanEntry {
	entries := PlanForDayBased(DayPlan{
		Target:            p.Target,
		Type:              TypeLive,
		Title:             p.DayTitle,
		Body:              p.DayBody,
		Anchor:            p.EventAt,
		LeadDaysPrimary:   p.LeadDaysPrimary,
		LeadDaysSecondary: p.LeadDaysSecondary,
		TimeOfDay:         p.TimeOfDay,
	}, now)

	// Minute entries continue the series after the two day slots.
	leads := []int{p.LeadMinutesPrimary, p.LeadMinutesSecondary}
	for i, lead := range leads {
		if lead <= 0 {
			continue
		}
		triggerAt := p.EventAt.Time.Add(-time.Duration(lead) * time.Minute)
		if !triggerAt.After(now) {
			continue
		}
		idx := 2 + i
		entries = append(entries, PlanEntry{
			StableKey:   StableKey(p.Target, TypeLive, idx),
			Type:        TypeLive,
			Title:       p.TimeTitle,
			Body:        p.TimeBody,
			TriggerAt:   triggerAt,
			SeriesIndex: idx,
		})
	}
	return entries
}
