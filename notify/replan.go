/*
replan.go - Clear-all-then-regenerate reminder orchestration

PURPOSE:
  Replan cancels EVERY previously scheduled entry unconditionally, then
  regenerates entries for every eligible entity type by calling the pure
  planning functions. This trades efficiency for correctness: no stale
  entry can survive a configuration change (e.g., the user moving lead
  times from 30/7 to 14/3), at the cost of a brief window with zero
  scheduled reminders.

ORDERING:
  Entity types are processed strictly in sequence. Partial concurrent
  regeneration risks a race where a cancel from one path clobbers a
  freshly scheduled entry from another.

WHAT GETS PLANNED:
  1. Expiring activities          (anchor: certificate expiry)
  2. Ending renewal periods       (anchor: period end; plus an
     application-window entry and a single late-fee entry when those
     milestones are set)
  3. Disciplinary deadlines       (unresolved actions only)
  4. Reinstatement milestones     (anchor: reinstatement deadline)
  5. Live events                  (day entries + minutes-before entries)

  Award notifications are NOT part of this pass - their once-ever state
  must survive the blanket cancel (see awards.go).

SEE ALSO:
  - planner.go: The pure functions applied per entity
  - api/scheduler.go: Runs Replan on a ticker
*/
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/warp/credential-engine/ce"
)

// =============================================================================
// REPLANNER
// =============================================================================

// Replanner regenerates the full reminder schedule from the repository.
type Replanner struct {
	Source  ce.ReminderSource
	Gateway Gateway

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Summary reports one replan pass.
type Summary struct {
	Planned    int // entries handed to the gateway
	Dropped    int // entries the gateway refused (auth) after one retry
	Suppressed int // entity classes skipped by user toggles
}

func NewReplanner(source ce.ReminderSource, gateway Gateway) *Replanner {
	return &Replanner{Source: source, Gateway: gateway, Now: time.Now}
}

// Replan clears all scheduled entries, then regenerates them for every
// eligible entity. Running it twice with unchanged inputs and the same
// "now" yields the same stable-key set.
func (r *Replanner) Replan(ctx context.Context, prefs Preferences) (Summary, error) {
	prefs = prefs.Normalized()
	now := r.now()
	// Fetch cutoffs and past-trigger dropping must agree on what "today"
	// is, so it derives from the same clock as now.
	today := ce.FromTime(now).StartOfDay()

	if err := r.Gateway.CancelAll(ctx); err != nil {
		return Summary{}, fmt.Errorf("cancel previous schedule: %w", err)
	}

	var sum Summary
	steps := []func(context.Context, Preferences, time.Time, ce.TimePoint, *Summary) error{
		r.planExpiringActivities,
		r.planRenewalPeriods,
		r.planDisciplinaryDeadlines,
		r.planLiveEvents,
	}
	for _, step := range steps {
		if err := step(ctx, prefs, now, today, &sum); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (r *Replanner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// -----------------------------------------------------------------------------
// Entity-type passes (sequential, in Replan order)
// -----------------------------------------------------------------------------

func (r *Replanner) planExpiringActivities(ctx context.Context, prefs Preferences, now time.Time, today ce.TimePoint, sum *Summary) error {
	if !prefs.Enabled(TypeActivityExpiry) {
		sum.Suppressed++
		return nil
	}
	completed := true
	acts, err := r.Source.FetchActivities(ctx, ce.ActivityFilter{
		Completed:   &completed,
		ExpiresFrom: &today,
	})
	if err != nil {
		return fmt.Errorf("fetch expiring activities: %w", err)
	}
	for _, a := range acts {
		if a.ExpiresAt == nil {
			continue
		}
		entries := PlanForDayBased(DayPlan{
			Target:            ActivityTarget(a.ID),
			Type:              TypeActivityExpiry,
			Title:             "Certificate expiring",
			Body:              fmt.Sprintf("%q expires on %s.", a.Title, a.ExpiresAt),
			Anchor:            *a.ExpiresAt,
			LeadDaysPrimary:   prefs.LeadDaysPrimary,
			LeadDaysSecondary: prefs.LeadDaysSecondary,
			TimeOfDay:         prefs.TimeOfDay,
		}, now)
		r.schedule(ctx, entries, sum)
	}
	return nil
}

func (r *Replanner) planRenewalPeriods(ctx context.Context, prefs Preferences, now time.Time, today ce.TimePoint, sum *Summary) error {
	creds, err := r.Source.FetchCredentials(ctx)
	if err != nil {
		return fmt.Errorf("fetch credentials: %w", err)
	}
	for _, cred := range creds {
		periods, err := r.Source.FetchRenewalPeriods(ctx, cred.ID)
		if err != nil {
			return fmt.Errorf("fetch periods for %s: %w", cred.ID, err)
		}
		for _, p := range periods {
			if p.Completed {
				continue
			}
			// Ended periods stay interesting only while a reinstatement
			// deadline hangs over them.
			if p.End.Before(today) && p.Reinstatement == nil {
				continue
			}
			r.planOnePeriod(ctx, prefs, now, cred, p, sum)
		}
	}
	return nil
}

func (r *Replanner) planOnePeriod(ctx context.Context, prefs Preferences, now time.Time, cred ce.Credential, p ce.RenewalPeriod, sum *Summary) {
	target := PeriodTarget(p.ID)

	if prefs.Enabled(TypeRenewalEnd) {
		entries := PlanForDayBased(DayPlan{
			Target:            target,
			Type:              TypeRenewalEnd,
			Title:             "Renewal period ending",
			Body:              fmt.Sprintf("%s renews by %s.", cred.Name, p.End),
			Anchor:            p.End,
			LeadDaysPrimary:   prefs.LeadDaysPrimary,
			LeadDaysSecondary: prefs.LeadDaysSecondary,
			TimeOfDay:         prefs.TimeOfDay,
		}, now)
		r.schedule(ctx, entries, sum)
	} else {
		sum.Suppressed++
	}

	// Application window: single entry, anchored on the day the window
	// opens rather than leadDays before the period end.
	if p.ApplicationWindowStart != nil && prefs.Enabled(TypeApplicationWindow) {
		entries := PlanForDayBased(DayPlan{
			Target:            target,
			Type:              TypeApplicationWindow,
			Title:             "Renewal application open",
			Body:              fmt.Sprintf("You can now apply to renew %s.", cred.Name),
			Anchor:            p.End,
			LeadDaysPrimary:   prefs.LeadDaysPrimary,
			LeadDaysSecondary: prefs.LeadDaysSecondary,
			TimeOfDay:         prefs.TimeOfDay,
			SingleOnly:        true,
			CustomAnchor:      p.ApplicationWindowStart,
		}, now)
		r.schedule(ctx, entries, sum)
	}

	if p.LateFeeDate != nil && prefs.Enabled(TypeLateFee) {
		body := fmt.Sprintf("Late fee applies to %s from %s.", cred.Name, p.LateFeeDate)
		if p.LateFeeAmount != nil {
			body = fmt.Sprintf("Late fee of %s applies to %s from %s.", p.LateFeeAmount, cred.Name, p.LateFeeDate)
		}
		entries := PlanForDayBased(DayPlan{
			Target:            target,
			Type:              TypeLateFee,
			Title:             "Late fee approaching",
			Body:              body,
			Anchor:            *p.LateFeeDate,
			LeadDaysPrimary:   prefs.LeadDaysPrimary,
			LeadDaysSecondary: prefs.LeadDaysSecondary,
			TimeOfDay:         prefs.TimeOfDay,
			SingleOnly:        true,
		}, now)
		r.schedule(ctx, entries, sum)
	}

	// Reinstatement milestone rides on the period fetch: the info is
	// one-to-one with its lapsed period.
	if p.Reinstatement != nil && prefs.Enabled(TypeReinstatement) {
		entries := PlanForDayBased(DayPlan{
			Target:            target,
			Type:              TypeReinstatement,
			Title:             "Reinstatement deadline",
			Body:              fmt.Sprintf("Extra CE for %s is due by %s.", cred.Name, p.Reinstatement.Deadline),
			Anchor:            p.Reinstatement.Deadline,
			LeadDaysPrimary:   prefs.LeadDaysPrimary,
			LeadDaysSecondary: prefs.LeadDaysSecondary,
			TimeOfDay:         prefs.TimeOfDay,
		}, now)
		r.schedule(ctx, entries, sum)
	}
}

func (r *Replanner) planDisciplinaryDeadlines(ctx context.Context, prefs Preferences, now time.Time, _ ce.TimePoint, sum *Summary) error {
	if !prefs.Enabled(TypeDiscipline) {
		sum.Suppressed++
		return nil
	}
	actions, err := r.Source.FetchDisciplinaryActions(ctx)
	if err != nil {
		return fmt.Errorf("fetch disciplinary actions: %w", err)
	}
	for _, d := range actions {
		entries := PlanForDayBased(DayPlan{
			Target:            ActionTarget(d.ID),
			Type:              TypeDiscipline,
			Title:             "Compliance deadline",
			Body:              fmt.Sprintf("%s is due by %s.", d.Description, d.Deadline),
			Anchor:            d.Deadline,
			LeadDaysPrimary:   prefs.LeadDaysPrimary,
			LeadDaysSecondary: prefs.LeadDaysSecondary,
			TimeOfDay:         prefs.TimeOfDay,
		}, now)
		r.schedule(ctx, entries, sum)
	}
	return nil
}

func (r *Replanner) planLiveEvents(ctx context.Context, prefs Preferences, now time.Time, today ce.TimePoint, sum *Summary) error {
	if !prefs.Enabled(TypeLive) {
		sum.Suppressed++
		return nil
	}
	events, err := r.Source.FetchLiveEvents(ctx, today)
	if err != nil {
		return fmt.Errorf("fetch live events: %w", err)
	}
	for _, e := range events {
		entries := PlanForLiveEvent(LivePlan{
			Target:               EventTarget(e.ID),
			EventAt:              e.StartsAt,
			LeadMinutesPrimary:   prefs.LeadMinutesPrimaryLive,
			LeadMinutesSecondary: prefs.LeadMinutesSecondaryLive,
			LeadDaysPrimary:      prefs.LeadDaysPrimary,
			LeadDaysSecondary:    prefs.LeadDaysSecondary,
			TimeOfDay:            prefs.TimeOfDay,
			DayTitle:             "Live event coming up",
			DayBody:              fmt.Sprintf("%q on %s.", e.Title, e.StartsAt),
			TimeTitle:            "Live event starting",
			TimeBody:             fmt.Sprintf("%q starts at %s.", e.Title, e.StartsAt),
		}, now)
		r.schedule(ctx, entries, sum)
	}
	return nil
}

// schedule hands entries to the gateway, retrying once on undetermined
// authorization and dropping (with a count) anything still refused. One
// bad entry never aborts the pass.
func (r *Replanner) schedule(ctx context.Context, entries []PlanEntry, sum *Summary) {
	for _, e := range entries {
		if err := ScheduleWithRetry(ctx, r.Gateway, e); err != nil {
			log.Printf("[Replan] Dropped %s: %v", e.StableKey, err)
			sum.Dropped++
			continue
		}
		sum.Planned++
	}
}
