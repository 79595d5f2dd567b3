/*
planner_test.go - Pure planning function tests

Uses a fixed "now" so trigger arithmetic is deterministic. The key
behaviors: stable-key construction, time-of-day offsets, silent dropping
of past triggers, custom anchors, and minute-based live-event entries.
*/
package notify_test

import (
	"testing"
	"time"

	"github.com/warp/credential-engine/ce"
	"github.com/warp/credential-engine/notify"
)

var fixedNow = time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

func dayPlan(anchor ce.TimePoint) notify.DayPlan {
	return notify.DayPlan{
		Target:            notify.PeriodTarget("p1"),
		Type:              notify.TypeRenewalEnd,
		Title:             "Renewal period ending",
		Body:              "body",
		Anchor:            anchor,
		LeadDaysPrimary:   30,
		LeadDaysSecondary: 7,
		TimeOfDay:         ce.Morning,
	}
}

func TestPlanForDayBased_TwoEntriesWithStableKeys(t *testing.T) {
	// GIVEN: An anchor far enough out for both lead times
	anchor := ce.NewTimePoint(2026, time.March, 1)

	// WHEN: Planning
	entries := notify.PlanForDayBased(dayPlan(anchor), fixedNow)

	// THEN: Primary and secondary entries with deterministic keys
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].StableKey != "period:p1-renewal_end.0" {
		t.Errorf("unexpected primary key %q", entries[0].StableKey)
	}
	if entries[1].StableKey != "period:p1-renewal_end.1" {
		t.Errorf("unexpected secondary key %q", entries[1].StableKey)
	}

	// AND: Triggers are anchor minus lead days, at 09:00
	wantPrimary := time.Date(2026, time.January, 30, 9, 0, 0, 0, time.UTC)
	if !entries[0].TriggerAt.Equal(wantPrimary) {
		t.Errorf("primary trigger %v, want %v", entries[0].TriggerAt, wantPrimary)
	}
	wantSecondary := time.Date(2026, time.February, 22, 9, 0, 0, 0, time.UTC)
	if !entries[1].TriggerAt.Equal(wantSecondary) {
		t.Errorf("secondary trigger %v, want %v", entries[1].TriggerAt, wantSecondary)
	}
}

func TestPlanForDayBased_SamePlanSameNow_Deterministic(t *testing.T) {
	// GIVEN: The same plan planned twice with the same now
	anchor := ce.NewTimePoint(2026, time.March, 1)
	first := notify.PlanForDayBased(dayPlan(anchor), fixedNow)
	second := notify.PlanForDayBased(dayPlan(anchor), fixedNow)

	// THEN: Byte-for-byte identical entries - the idempotency foundation
	if len(first) != len(second) {
		t.Fatalf("entry counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("entry %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestPlanForDayBased_PastPrimaryDroppedSilently(t *testing.T) {
	// GIVEN: An anchor only 9 days out with a 30-day primary lead
	anchor := ce.NewTimePoint(2026, time.January, 10)

	// WHEN: Planning
	entries := notify.PlanForDayBased(dayPlan(anchor), fixedNow)

	// THEN: Only the 7-day secondary survives; nothing is scheduled
	//       retroactively and no error is raised
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].SeriesIndex != 1 {
		t.Errorf("expected the secondary entry, got index %d", entries[0].SeriesIndex)
	}
	if !entries[0].TriggerAt.After(fixedNow) {
		t.Error("surviving trigger must be strictly in the future")
	}
}

func TestPlanForDayBased_NonPositiveLeadsSkipped(t *testing.T) {
	// GIVEN: Zero day leads ("skip that entry", like minute leads)
	p := dayPlan(ce.NewTimePoint(2026, time.March, 1))
	p.LeadDaysPrimary = 0
	p.LeadDaysSecondary = 0

	// THEN: Nothing is planned, even though the anchor day itself is
	//       still ahead of now
	if entries := notify.PlanForDayBased(p, fixedNow); len(entries) != 0 {
		t.Errorf("expected no entries for zero leads, got %+v", entries)
	}

	// AND: A custom anchor is exempt - it carries its own day
	custom := ce.NewTimePoint(2026, time.February, 1)
	p.CustomAnchor = &custom
	p.SingleOnly = true
	entries := notify.PlanForDayBased(p, fixedNow)
	if len(entries) != 1 || entries[0].SeriesIndex != 0 {
		t.Fatalf("expected only the custom-anchored primary entry, got %+v", entries)
	}
}

func TestPlanForDayBased_SingleOnlySkipsSecondary(t *testing.T) {
	// GIVEN: A single-only plan (e.g., late fee)
	p := dayPlan(ce.NewTimePoint(2026, time.March, 1))
	p.SingleOnly = true

	// WHEN: Planning
	entries := notify.PlanForDayBased(p, fixedNow)

	// THEN: Exactly the primary entry
	if len(entries) != 1 || entries[0].SeriesIndex != 0 {
		t.Fatalf("expected only the primary entry, got %+v", entries)
	}
}

func TestPlanForDayBased_CustomAnchorFiresOnThatDay(t *testing.T) {
	// GIVEN: An application window opening Jan 20 ahead of a Mar 1 anchor
	p := dayPlan(ce.NewTimePoint(2026, time.March, 1))
	p.SingleOnly = true
	custom := ce.NewTimePoint(2026, time.January, 20)
	p.CustomAnchor = &custom

	// WHEN: Planning
	entries := notify.PlanForDayBased(p, fixedNow)

	// THEN: The primary entry fires on the custom day itself
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	want := time.Date(2026, time.January, 20, 9, 0, 0, 0, time.UTC)
	if !entries[0].TriggerAt.Equal(want) {
		t.Errorf("trigger %v, want %v", entries[0].TriggerAt, want)
	}
}

func TestPlanForDayBased_EveningOffset(t *testing.T) {
	// GIVEN: An evening delivery preference
	p := dayPlan(ce.NewTimePoint(2026, time.March, 1))
	p.TimeOfDay = ce.Evening

	// WHEN: Planning
	entries := notify.PlanForDayBased(p, fixedNow)

	// THEN: Entries fire at 19:00
	if len(entries) == 0 {
		t.Fatal("expected entries")
	}
	if got := entries[0].TriggerAt.Hour(); got != 19 {
		t.Errorf("expected 19:00 delivery, got hour %d", got)
	}
}

func TestPlanForLiveEvent_MinuteEntriesContinueTheSeries(t *testing.T) {
	// GIVEN: A live event tomorrow evening, 60/15 minute leads, day leads
	//        that already passed
	p := notify.LivePlan{
		Target:               notify.EventTarget("e1"),
		EventAt:              ce.NewTimePointAt(2026, time.January, 2, 18, 30),
		LeadMinutesPrimary:   60,
		LeadMinutesSecondary: 15,
		LeadDaysPrimary:      30,
		LeadDaysSecondary:    7,
		TimeOfDay:            ce.Morning,
		TimeTitle:            "Live event starting",
	}

	// WHEN: Planning
	entries := notify.PlanForLiveEvent(p, fixedNow)

	// THEN: Only the two minute-based entries, at series indexes 2 and 3
	if len(entries) != 2 {
		t.Fatalf("expected 2 minute entries, got %d", len(entries))
	}
	if entries[0].StableKey != "event:e1-live.2" || entries[1].StableKey != "event:e1-live.3" {
		t.Errorf("unexpected keys %q, %q", entries[0].StableKey, entries[1].StableKey)
	}
	want60 := time.Date(2026, time.January, 2, 17, 30, 0, 0, time.UTC)
	want15 := time.Date(2026, time.January, 2, 18, 15, 0, 0, time.UTC)
	if !entries[0].TriggerAt.Equal(want60) || !entries[1].TriggerAt.Equal(want15) {
		t.Errorf("triggers %v, %v; want %v, %v",
			entries[0].TriggerAt, entries[1].TriggerAt, want60, want15)
	}
}

func TestPlanForLiveEvent_NonPositiveMinuteLeadSkipped(t *testing.T) {
	// GIVEN: A zero secondary minute lead ("skip that entry")
	p := notify.LivePlan{
		Target:             notify.EventTarget("e1"),
		EventAt:            ce.NewTimePointAt(2026, time.January, 2, 18, 30),
		LeadMinutesPrimary: 60,
	}

	// WHEN: Planning
	entries := notify.PlanForLiveEvent(p, fixedNow)

	// THEN: Only the primary minute entry (day leads are zero -> past)
	if len(entries) != 1 || entries[0].SeriesIndex != 2 {
		t.Fatalf("expected only the primary minute entry, got %+v", entries)
	}
}

func TestPlanForLiveEvent_PastEventYieldsNothing(t *testing.T) {
	// GIVEN: An event that already started
	p := notify.LivePlan{
		Target:               notify.EventTarget("e1"),
		EventAt:              ce.NewTimePointAt(2025, time.December, 31, 10, 0),
		LeadMinutesPrimary:   60,
		LeadMinutesSecondary: 15,
	}

	// WHEN / THEN: No entries, no error
	if entries := notify.PlanForLiveEvent(p, fixedNow); len(entries) != 0 {
		t.Errorf("expected no entries for a past event, got %d", len(entries))
	}
}

func TestStableKey_TypeQualifiedAcrossEntityKinds(t *testing.T) {
	// GIVEN: An activity and a live event sharing the raw ID "x1"
	a := notify.StableKey(notify.ActivityTarget("x1"), notify.TypeActivityExpiry, 0)
	e := notify.StableKey(notify.EventTarget("x1"), notify.TypeLive, 0)

	// THEN: The kind prefix keeps their keys distinct
	if a == e {
		t.Errorf("keys must not collide across entity kinds: %q", a)
	}
}
