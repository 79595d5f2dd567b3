/*
gateway.go - Scheduling Gateway boundary

PURPOSE:
  The planner only emits PlanEntry requests; delivering them (and asking
  the OS for notification permission) is the gateway's job. This file
  defines that contract plus an in-memory implementation used by tests
  and by the dev server.

AUTHORIZATION:
  Scheduling may block on platform authorization on first use. A schedule
  attempt that fails with "not yet determined" is retried exactly once;
  after that the entry is dropped silently and counted. "Denied" is
  reported upward as a status value - the UI has to be able to explain
  why nothing will fire.

SEE ALSO:
  - replan.go: The only caller of CancelAll
  - awards.go: Individually cancels award entries
*/
package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// =============================================================================
// AUTHORIZATION STATUS
// =============================================================================

type AuthorizationStatus string

const (
	AuthUndetermined AuthorizationStatus = "undetermined"
	AuthDenied       AuthorizationStatus = "denied"
	AuthGranted      AuthorizationStatus = "granted"
)

// ErrAuthorizationUndetermined signals that the platform has not answered
// the permission prompt yet. Schedule calls failing with this are retried
// once (see ScheduleWithRetry).
var ErrAuthorizationUndetermined = errors.New("notification authorization not yet determined")

// ErrAuthorizationDenied signals the user declined notifications. Reported
// upward as a status, never swallowed past the point the UI needs it.
var ErrAuthorizationDenied = errors.New("notifications not authorized")

// =============================================================================
// GATEWAY - Produced-to interface
// =============================================================================

// Gateway schedules and cancels planned reminders. Scheduling the same
// stable key twice replaces the previous entry.
type Gateway interface {
	Schedule(ctx context.Context, entry PlanEntry) error
	Cancel(ctx context.Context, stableKey string) error
	CancelAll(ctx context.Context) error
	Authorization(ctx context.Context) AuthorizationStatus
}

// ScheduleWithRetry schedules one entry, retrying exactly once when
// authorization is still undetermined. Any remaining error is returned to
// the caller, which drops the entry silently (and counts it).
func ScheduleWithRetry(ctx context.Context, g Gateway, entry PlanEntry) error {
	err := g.Schedule(ctx, entry)
	if errors.Is(err, ErrAuthorizationUndetermined) {
		err = g.Schedule(ctx, entry)
	}
	return err
}

// =============================================================================
// MEMORY GATEWAY - For tests and the dev server
// =============================================================================

// MemoryGateway records scheduled entries keyed by stable key.
type MemoryGateway struct {
	mu      sync.Mutex
	entries map[string]PlanEntry

	// Status returned by Authorization and enforced by Schedule.
	// Defaults to granted. Setting AuthUndetermined makes the next
	// FailNext schedule calls fail with ErrAuthorizationUndetermined.
	Status   AuthorizationStatus
	FailNext int

	// CancelAllCalls counts blanket cancels, for replan tests.
	CancelAllCalls int
}

var _ Gateway = (*MemoryGateway)(nil)

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{entries: make(map[string]PlanEntry), Status: AuthGranted}
}

func (g *MemoryGateway) Schedule(_ context.Context, entry PlanEntry) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailNext > 0 {
		g.FailNext--
		return ErrAuthorizationUndetermined
	}
	switch g.Status {
	case AuthDenied:
		return ErrAuthorizationDenied
	case AuthUndetermined:
		return ErrAuthorizationUndetermined
	}
	g.entries[entry.StableKey] = entry
	return nil
}

func (g *MemoryGateway) Cancel(_ context.Context, stableKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, stableKey)
	return nil
}

func (g *MemoryGateway) CancelAll(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = make(map[string]PlanEntry)
	g.CancelAllCalls++
	return nil
}

func (g *MemoryGateway) Authorization(_ context.Context) AuthorizationStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Status == "" {
		return AuthGranted
	}
	return g.Status
}

// Scheduled returns the current entries sorted by stable key.
func (g *MemoryGateway) Scheduled() []PlanEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]PlanEntry, 0, len(g.entries))
	for _, e := range g.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StableKey < out[j].StableKey })
	return out
}

// Keys returns the scheduled stable keys, sorted.
func (g *MemoryGateway) Keys() []string {
	entries := g.Scheduled()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.StableKey
	}
	return keys
}
