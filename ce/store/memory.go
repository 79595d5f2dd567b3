// Package store provides in-memory Repository implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/credential-engine/ce"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	credentials map[ce.CredentialID]ce.Credential
	periods     map[ce.PeriodID]ce.RenewalPeriod
	activities  map[ce.ActivityID]ce.Activity
	actions     map[ce.ActionID]ce.DisciplinaryAction
	events      map[ce.EventID]ce.LiveEvent
}

var _ ce.ReminderSource = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		credentials: make(map[ce.CredentialID]ce.Credential),
		periods:     make(map[ce.PeriodID]ce.RenewalPeriod),
		activities:  make(map[ce.ActivityID]ce.Activity),
		actions:     make(map[ce.ActionID]ce.DisciplinaryAction),
		events:      make(map[ce.EventID]ce.LiveEvent),
	}
}

// -----------------------------------------------------------------------------
// Writes (used by the api layer and tests; the core only reads)
// -----------------------------------------------------------------------------

func (m *Memory) PutCredential(_ context.Context, c ce.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[c.ID] = c
	return nil
}

func (m *Memory) PutRenewalPeriod(_ context.Context, p ce.RenewalPeriod) error {
	if p.End.Before(p.Start) {
		return ce.ErrInvalidPeriod
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods[p.ID] = p
	return nil
}

func (m *Memory) PutActivity(_ context.Context, a ce.Activity) error {
	if a.Awarded.IsNegative() {
		return ce.ErrNegativeAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities[a.ID] = a
	return nil
}

func (m *Memory) PutDisciplinaryAction(_ context.Context, d ce.DisciplinaryAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[d.ID] = d
	return nil
}

func (m *Memory) PutLiveEvent(_ context.Context, e ce.LiveEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
	return nil
}

// SetActivityPeriod applies one linkage change from the resolver's Relink
// pass. A nil periodID unassigns.
func (m *Memory) SetActivityPeriod(_ context.Context, id ce.ActivityID, periodID *ce.PeriodID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok {
		return &ce.NotFoundError{Kind: "activity", ID: string(id)}
	}
	a.PeriodID = periodID
	m.activities[id] = a
	return nil
}

// -----------------------------------------------------------------------------
// ce.Repository
// -----------------------------------------------------------------------------

func (m *Memory) FetchCredential(_ context.Context, id ce.CredentialID) (*ce.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.credentials[id]
	if !ok {
		return nil, &ce.NotFoundError{Kind: "credential", ID: string(id)}
	}
	out := c
	return &out, nil
}

func (m *Memory) FetchCredentials(_ context.Context) ([]ce.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ce.Credential, 0, len(m.credentials))
	for _, c := range m.credentials {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) FetchActivities(_ context.Context, filter ce.ActivityFilter) ([]ce.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ce.Activity
	for _, a := range m.activities {
		if filter.Matches(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) FetchRenewalPeriods(_ context.Context, credentialID ce.CredentialID) ([]ce.RenewalPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ce.RenewalPeriod
	for _, p := range m.periods {
		if p.CredentialID == credentialID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) FetchRenewalPeriod(_ context.Context, id ce.PeriodID) (*ce.RenewalPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.periods[id]
	if !ok {
		return nil, &ce.NotFoundError{Kind: "period", ID: string(id)}
	}
	out := p
	return &out, nil
}

func (m *Memory) FetchSpecialCategories(_ context.Context, credentialID ce.CredentialID) ([]ce.SpecialCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.credentials[credentialID]
	if !ok {
		return nil, nil
	}
	out := make([]ce.SpecialCategory, len(c.SpecialCategories))
	copy(out, c.SpecialCategories)
	return out, nil
}

// -----------------------------------------------------------------------------
// ce.ReminderSource
// -----------------------------------------------------------------------------

func (m *Memory) FetchDisciplinaryActions(_ context.Context) ([]ce.DisciplinaryAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ce.DisciplinaryAction
	for _, d := range m.actions {
		if !d.Resolved {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) FetchLiveEvents(_ context.Context, asOf ce.TimePoint) ([]ce.LiveEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ce.LiveEvent
	for _, e := range m.events {
		if e.StartsAt.AfterOrEqual(asOf) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}
