/*
handlers_test.go - HTTP endpoint tests

Exercises the full stack: router -> handlers -> SQLite (:memory:) store,
with the in-memory scheduling gateway standing in for platform delivery.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/credential-engine/api"
	"github.com/warp/credential-engine/ce"
	"github.com/warp/credential-engine/notify"
	"github.com/warp/credential-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *notify.MemoryGateway) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	gateway := notify.NewMemoryGateway()
	server := httptest.NewServer(api.NewRouter(api.NewHandler(store, gateway)))
	t.Cleanup(server.Close)
	return server, gateway
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// seedCredentialWithPeriod creates the standard fixture: a 24-hour
// credential with an ethics category and a 2025 renewal period.
func seedCredentialWithPeriod(t *testing.T, baseURL string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, baseURL+"/api/credentials", map[string]any{
		"id":             "c1",
		"name":           "RN License",
		"required_ces":   24,
		"hours_per_unit": 10,
		"special_categories": []map[string]any{
			{"id": "ethics", "name": "Ethics", "required_hours": 3},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, baseURL+"/api/credentials/c1/periods", map[string]any{
		"id":    "p1",
		"start": "2025-01-01",
		"end":   "2025-12-31",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func postActivity(t *testing.T, baseURL string, body map[string]any) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, baseURL+"/api/activities", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// CREDENTIALS
// =============================================================================

func TestCreateAndGetCredential(t *testing.T) {
	server, _ := newTestServer(t)
	seedCredentialWithPeriod(t, server.URL)

	var got api.CredentialDTO
	resp := doJSON(t, http.MethodGet, server.URL+"/api/credentials/c1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &got)

	assert.Equal(t, "RN License", got.Name)
	assert.Equal(t, 24.0, got.RequiredCEs)
	require.Len(t, got.SpecialCategories, 1)
	assert.Equal(t, "Ethics", got.SpecialCategories[0].Name)
}

func TestGetCredential_Unknown_Returns404(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/credentials/nope", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// COMPLIANCE & ASSIGNMENT
// =============================================================================

func TestCompliance_MixedUnitActivities(t *testing.T) {
	server, _ := newTestServer(t)
	seedCredentialWithPeriod(t, server.URL)

	// GIVEN: A 10-hour course and a 1-unit course, both completed in-period
	postActivity(t, server.URL, map[string]any{
		"id": "a1", "title": "Pharmacology Update", "awarded_value": 10,
		"completed": true, "completion_date": "2025-03-10",
		"credential_ids": []string{"c1"},
	})
	postActivity(t, server.URL, map[string]any{
		"id": "a2", "title": "Wound Care Seminar", "awarded_value": 1, "awarded_unit": "units",
		"completed": true, "completion_date": "2025-04-20",
		"credential_ids": []string{"c1"},
	})

	// WHEN: Linking activities to their periods
	var assign api.AssignResponse
	resp := doJSON(t, http.MethodPost, server.URL+"/api/activities/assign", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &assign)
	assert.Equal(t, 2, assign.Changed)

	// THEN: 24 - (10 + 1 unit * 10) = 4 remaining
	var compliance api.ComplianceResponse
	resp = doJSON(t, http.MethodGet, server.URL+"/api/credentials/c1/compliance?as_of=2025-06-01", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &compliance)

	require.Len(t, compliance.Periods, 1)
	p := compliance.Periods[0]
	assert.True(t, p.IsCurrent)
	assert.Equal(t, 20.0, p.Earned.Value)
	assert.Equal(t, 4.0, p.Remaining.Value)
	assert.Equal(t, "hours", p.Remaining.Unit)

	// AND: Ethics untouched, full 3 hours remaining
	ethics, ok := p.Categories["Ethics"]
	require.True(t, ok)
	assert.Equal(t, 3.0, ethics.Remaining.Value)
}

func TestAssignActivities_SecondPassChangesNothing(t *testing.T) {
	server, _ := newTestServer(t)
	seedCredentialWithPeriod(t, server.URL)
	postActivity(t, server.URL, map[string]any{
		"id": "a1", "title": "CPR Refresher", "awarded_value": 5,
		"completed": true, "completion_date": "2025-03-10",
		"credential_ids": []string{"c1"},
	})

	var first, second api.AssignResponse
	resp := doJSON(t, http.MethodPost, server.URL+"/api/activities/assign", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &first)
	resp = doJSON(t, http.MethodPost, server.URL+"/api/activities/assign", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &second)

	assert.Equal(t, 1, first.Changed)
	assert.Zero(t, second.Changed, "relink must be idempotent")
}

func TestCreateActivity_NegativeAward_Rejected(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/activities", map[string]any{
		"title": "Bad Entry", "awarded_value": -5,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreatePeriod_EndBeforeStart_Rejected(t *testing.T) {
	server, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, server.URL+"/api/credentials", map[string]any{
		"id": "c1", "name": "RN License", "required_ces": 24,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/api/credentials/c1/periods", map[string]any{
		"id": "p1", "start": "2025-12-31", "end": "2025-01-01",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// REINSTATEMENT
// =============================================================================

func TestReinstatement_RequiredVersusEarned(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/credentials", map[string]any{
		"id": "c1", "name": "RN License", "required_ces": 24, "hours_per_unit": 10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/api/credentials/c1/periods", map[string]any{
		"id": "p1", "start": "2024-01-01", "end": "2024-12-31",
		"reinstatement": map[string]any{
			"total_extra_ces": 250,
			"deadline":        "2025-06-30",
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	postActivity(t, server.URL, map[string]any{
		"id": "a1", "title": "Makeup CE Marathon", "awarded_value": 100,
		"completed": true, "completion_date": "2024-06-01",
		"credential_ids": []string{"c1"}, "for_reinstatement": true,
	})
	resp = doJSON(t, http.MethodPost, server.URL+"/api/activities/assign", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var got api.ReinstatementStatusResponse
	resp = doJSON(t, http.MethodGet, server.URL+"/api/periods/p1/reinstatement", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &got)

	assert.Equal(t, 250.0, got.Required.Value)
	assert.Equal(t, 100.0, got.Earned.Value)
	assert.Equal(t, 150.0, got.Remaining.Value)
	assert.Equal(t, "hours", got.Required.Unit)
	assert.True(t, got.Met, "no category sub-requirements means trivially met")
}

// =============================================================================
// PREFERENCES & REPLAN
// =============================================================================

func TestPreferences_DefaultsThenUpdate(t *testing.T) {
	server, _ := newTestServer(t)

	var got api.PreferencesDTO
	resp := doJSON(t, http.MethodGet, server.URL+"/api/preferences", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &got)
	assert.Equal(t, 30, got.LeadDaysPrimary)
	assert.Equal(t, 7, got.LeadDaysSecondary)

	resp = doJSON(t, http.MethodPut, server.URL+"/api/preferences", api.PreferencesDTO{
		LeadDaysPrimary:   14,
		LeadDaysSecondary: 3,
		TimeOfDay:         "evening",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/preferences", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &got)
	assert.Equal(t, 14, got.LeadDaysPrimary)
	assert.Equal(t, "evening", got.TimeOfDay)
}

func TestTriggerReplan_SchedulesFutureReminders(t *testing.T) {
	server, gateway := newTestServer(t)

	// GIVEN: A credential whose renewal period ends well in the future
	today := ce.Today()
	resp := doJSON(t, http.MethodPost, server.URL+"/api/credentials", map[string]any{
		"id": "c1", "name": "RN License", "required_ces": 24,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, server.URL+"/api/credentials/c1/periods", map[string]any{
		"id":    "p1",
		"start": today.AddDays(-300).String(),
		"end":   today.AddDays(60).String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// WHEN: Triggering a replan
	var got api.ReplanResponse
	resp = doJSON(t, http.MethodPost, server.URL+"/api/admin/replan", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &got)

	// THEN: Entries reached the gateway and none is past-due
	assert.Greater(t, got.Planned, 0)
	assert.Equal(t, "granted", got.Authorization)
	assert.Contains(t, gateway.Keys(), "period:p1-renewal_end.0")

	now := time.Now()
	for _, e := range gateway.Scheduled() {
		assert.True(t, e.TriggerAt.After(now.Add(-time.Minute)),
			"entry %s must not be past-due", e.StableKey)
	}
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
