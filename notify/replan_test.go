/*
replan_test.go - Clear-all-then-regenerate orchestration tests

Seeds an in-memory source with one entity of each watched type, dated
relative to today so every computed trigger lands in the future, then
asserts the idempotency and preference-staleness guarantees.
*/
package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/credential-engine/ce"
	"github.com/warp/credential-engine/ce/store"
	"github.com/warp/credential-engine/notify"
)

// seedSource populates one entity per watched type, all anchored in the
// future relative to today.
func seedSource(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()
	today := ce.Today()

	require.NoError(t, m.PutCredential(ctx, ce.Credential{
		ID:                 "c1",
		Name:               "RN License",
		MeasurementDefault: ce.UnitHours,
		HoursPerUnit:       decimal.NewFromInt(10),
		RequiredCEs:        decimal.NewFromInt(24),
	}))

	appWindow := today.AddDays(20)
	lateFee := today.AddDays(70)
	require.NoError(t, m.PutRenewalPeriod(ctx, ce.RenewalPeriod{
		ID:                     "p1",
		CredentialID:           "c1",
		Start:                  today.AddDays(-300),
		End:                    today.AddDays(60),
		ApplicationWindowStart: &appWindow,
		LateFeeDate:            &lateFee,
	}))

	expiry := today.AddDays(45)
	completion := today.AddDays(-10)
	require.NoError(t, m.PutActivity(ctx, ce.Activity{
		ID:             "a1",
		Title:          "ACLS Certification",
		Awarded:        ce.NewAmount(8, ce.UnitHours),
		Completed:      true,
		CompletionDate: &completion,
		ExpiresAt:      &expiry,
		CredentialIDs:  []ce.CredentialID{"c1"},
	}))

	require.NoError(t, m.PutDisciplinaryAction(ctx, ce.DisciplinaryAction{
		ID:           "d1",
		CredentialID: "c1",
		Description:  "Complete remedial course",
		Deadline:     today.AddDays(40),
	}))

	require.NoError(t, m.PutLiveEvent(ctx, ce.LiveEvent{
		ID:       "e1",
		Title:    "Ethics Webinar",
		StartsAt: ce.FromTime(time.Now().Add(48 * time.Hour)),
	}))

	return m
}

func TestReplan_SameInputs_SameStableKeySet(t *testing.T) {
	ctx := context.Background()
	source := seedSource(t)
	gateway := notify.NewMemoryGateway()
	replanner := notify.NewReplanner(source, gateway)

	// WHEN: Replanning twice with unchanged inputs
	first, err := replanner.Replan(ctx, notify.DefaultPreferences())
	require.NoError(t, err)
	firstKeys := gateway.Keys()

	second, err := replanner.Replan(ctx, notify.DefaultPreferences())
	require.NoError(t, err)

	// THEN: The stable-key set is identical and every pass cancels all
	assert.Equal(t, firstKeys, gateway.Keys())
	assert.Equal(t, first.Planned, second.Planned)
	assert.Equal(t, 2, gateway.CancelAllCalls)

	// AND: Representative entries from each entity class are present
	assert.Contains(t, firstKeys, "activity:a1-activity_expiry.0")
	assert.Contains(t, firstKeys, "period:p1-renewal_end.0")
	assert.Contains(t, firstKeys, "period:p1-application_window.0")
	assert.Contains(t, firstKeys, "period:p1-late_fee.0")
	assert.Contains(t, firstKeys, "discipline:d1-discipline.0")
	assert.Contains(t, firstKeys, "event:e1-live.2")
}

func TestReplan_NoEntryTriggersInThePast(t *testing.T) {
	ctx := context.Background()
	source := seedSource(t)
	gateway := notify.NewMemoryGateway()
	replanner := notify.NewReplanner(source, gateway)

	_, err := replanner.Replan(ctx, notify.DefaultPreferences())
	require.NoError(t, err)

	now := time.Now()
	for _, e := range gateway.Scheduled() {
		assert.True(t, e.TriggerAt.After(now.Add(-time.Minute)),
			"entry %s scheduled in the past: %v", e.StableKey, e.TriggerAt)
	}
}

func TestReplan_PreferenceChange_NoStaleEntriesSurvive(t *testing.T) {
	ctx := context.Background()
	source := seedSource(t)
	gateway := notify.NewMemoryGateway()
	replanner := notify.NewReplanner(source, gateway)

	// GIVEN: A pass under the default 30/7 lead times
	_, err := replanner.Replan(ctx, notify.DefaultPreferences())
	require.NoError(t, err)
	before := map[string]notify.PlanEntry{}
	for _, e := range gateway.Scheduled() {
		before[e.StableKey] = e
	}

	// WHEN: Replanning under 14/3
	prefs := notify.DefaultPreferences()
	prefs.LeadDaysPrimary = 14
	prefs.LeadDaysSecondary = 3
	_, err = replanner.Replan(ctx, prefs)
	require.NoError(t, err)

	// THEN: Day-anchored triggers moved with the new lead times; nothing
	//       from the old configuration lingers
	after := gateway.Scheduled()
	require.NotEmpty(t, after)
	for _, e := range after {
		if e.Type == notify.TypeRenewalEnd {
			old, ok := before[e.StableKey]
			require.True(t, ok)
			assert.True(t, e.TriggerAt.After(old.TriggerAt),
				"shorter lead must move %s later: %v -> %v", e.StableKey, old.TriggerAt, e.TriggerAt)
		}
	}
}

func TestReplan_DisabledClassSuppressed(t *testing.T) {
	ctx := context.Background()
	source := seedSource(t)
	gateway := notify.NewMemoryGateway()
	replanner := notify.NewReplanner(source, gateway)

	// GIVEN: Renewal-end reminders toggled off
	prefs := notify.DefaultPreferences()
	prefs.Toggles = map[notify.Type]bool{notify.TypeRenewalEnd: false}

	// WHEN: Replanning
	sum, err := replanner.Replan(ctx, prefs)
	require.NoError(t, err)

	// THEN: No renewal-end entries; the suppression is counted; other
	//       classes are unaffected
	for _, key := range gateway.Keys() {
		assert.NotContains(t, key, string(notify.TypeRenewalEnd))
	}
	assert.Greater(t, sum.Suppressed, 0)
	assert.Contains(t, gateway.Keys(), "activity:a1-activity_expiry.0")
}

func TestReplan_UndeterminedAuthorization_RetriedOnce(t *testing.T) {
	ctx := context.Background()
	source := seedSource(t)
	gateway := notify.NewMemoryGateway()
	gateway.FailNext = 1 // first Schedule call fails as undetermined
	replanner := notify.NewReplanner(source, gateway)

	// WHEN: Replanning
	sum, err := replanner.Replan(ctx, notify.DefaultPreferences())
	require.NoError(t, err)

	// THEN: The retry absorbed the transient failure; nothing dropped
	assert.Zero(t, sum.Dropped)
	assert.NotEmpty(t, gateway.Keys())
}

func TestReplan_DeniedAuthorization_EntriesDroppedAndCounted(t *testing.T) {
	ctx := context.Background()
	source := seedSource(t)
	gateway := notify.NewMemoryGateway()
	gateway.Status = notify.AuthDenied
	replanner := notify.NewReplanner(source, gateway)

	// WHEN: Replanning with notifications denied
	sum, err := replanner.Replan(ctx, notify.DefaultPreferences())

	// THEN: The pass completes; every entry is dropped and counted
	require.NoError(t, err)
	assert.Zero(t, sum.Planned)
	assert.Greater(t, sum.Dropped, 0)
	assert.Empty(t, gateway.Keys())
}

func TestReplan_InjectedClockDrivesFetchCutoffs(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	// GIVEN: An activity that expired 50 days ago by the wall clock
	expiry := ce.Today().AddDays(-50)
	completion := ce.Today().AddDays(-120)
	require.NoError(t, m.PutActivity(ctx, ce.Activity{
		ID:             "a1",
		Title:          "ACLS Certification",
		Awarded:        ce.NewAmount(8, ce.UnitHours),
		Completed:      true,
		CompletionDate: &completion,
		ExpiresAt:      &expiry,
	}))

	gateway := notify.NewMemoryGateway()
	replanner := notify.NewReplanner(m, gateway)

	// WHEN: Replanning as if 100 days ago
	replanner.Now = func() time.Time { return time.Now().AddDate(0, 0, -100) }
	_, err := replanner.Replan(ctx, notify.DefaultPreferences())
	require.NoError(t, err)

	// THEN: The expiry is still 50 days ahead of the injected clock, so
	//       the fetch cutoff must not drop it against the real one
	assert.Contains(t, gateway.Keys(), "activity:a1-activity_expiry.0")
}

func TestReplan_AwardStateSurvivesBlanketCancel(t *testing.T) {
	ctx := context.Background()
	source := seedSource(t)
	gateway := notify.NewMemoryGateway()
	replanner := notify.NewReplanner(source, gateway)

	seen := notify.NewMemoryNotifiedSet()
	awards := &notify.AwardPlanner{Gateway: gateway, Seen: seen}

	// GIVEN: An award notified before a replan
	award := ce.Award{ID: "aw1", Name: "100 Hours Logged", EarnedAt: ce.Today()}
	notified, err := awards.Notify(ctx, award, notify.DefaultPreferences())
	require.NoError(t, err)
	require.True(t, notified)

	// WHEN: Replan wipes and regenerates the schedule
	_, err = replanner.Replan(ctx, notify.DefaultPreferences())
	require.NoError(t, err)

	// THEN: The once-ever state survives; the award is NOT re-notified
	again, err := awards.Notify(ctx, award, notify.DefaultPreferences())
	require.NoError(t, err)
	assert.False(t, again, "award must never be congratulated twice")
}
