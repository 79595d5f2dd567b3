/*
awards.go - Once-ever achievement notifications

PURPOSE:
  Awards ("100 hours logged") are congratulated at most once, ever. Their
  already-notified state lives in a durable set that Replan's blanket
  cancel-and-regenerate pass must NEVER wipe - otherwise every replan
  would re-congratulate the user. Entries leave the set only when an
  award notification is explicitly cancelled.

CONCURRENCY:
  The notified set is the one piece of mutable state this package's
  boundary touches. Reads and writes are atomic relative to the planning
  pass: single writer, guarded by the planner's mutex.

SEE ALSO:
  - replan.go: Deliberately does NOT touch awards
  - store/sqlite: Durable NotifiedSet implementation
*/
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/credential-engine/ce"
)

// =============================================================================
// NOTIFIED SET - Durable once-ever state
// =============================================================================

// NotifiedSet records which awards have already been notified. Durable:
// survives process restarts and replans.
type NotifiedSet interface {
	Contains(ctx context.Context, id ce.AwardID) (bool, error)
	Add(ctx context.Context, id ce.AwardID) error
	Remove(ctx context.Context, id ce.AwardID) error
}

// MemoryNotifiedSet is the in-memory NotifiedSet for tests and dev.
type MemoryNotifiedSet struct {
	mu   sync.Mutex
	seen map[ce.AwardID]bool
}

func NewMemoryNotifiedSet() *MemoryNotifiedSet {
	return &MemoryNotifiedSet{seen: make(map[ce.AwardID]bool)}
}

func (s *MemoryNotifiedSet) Contains(_ context.Context, id ce.AwardID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[id], nil
}

func (s *MemoryNotifiedSet) Add(_ context.Context, id ce.AwardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[id] = true
	return nil
}

func (s *MemoryNotifiedSet) Remove(_ context.Context, id ce.AwardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, id)
	return nil
}

// =============================================================================
// AWARD PLANNER
// =============================================================================

// AwardPlanner schedules achievement notifications outside the replan
// pass. Single logical writer: Notify and Cancel serialize on mu.
type AwardPlanner struct {
	Gateway Gateway
	Seen    NotifiedSet

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time

	mu sync.Mutex
}

// Notify schedules the award notification unless the award was already
// notified. Returns true when a new entry was scheduled. The set is
// updated only after the gateway accepted the entry, so a refused
// schedule can be retried later.
func (p *AwardPlanner) Notify(ctx context.Context, award ce.Award, prefs Preferences) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !prefs.Normalized().Enabled(TypeAward) {
		return false, nil
	}
	seen, err := p.Seen.Contains(ctx, award.ID)
	if err != nil {
		return false, err
	}
	if seen {
		return false, nil
	}

	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	entry := PlanEntry{
		StableKey: StableKey(AwardTarget(award.ID), TypeAward, 0),
		Type:      TypeAward,
		Title:     "Achievement earned",
		Body:      fmt.Sprintf("You earned %q.", award.Name),
		TriggerAt: now.Add(time.Minute),
	}
	if err := ScheduleWithRetry(ctx, p.Gateway, entry); err != nil {
		return false, err
	}
	if err := p.Seen.Add(ctx, award.ID); err != nil {
		return false, err
	}
	return true, nil
}

// Cancel revokes one award notification and forgets its notified state,
// so the award becomes eligible again. This is the ONLY way state leaves
// the set.
func (p *AwardPlanner) Cancel(ctx context.Context, id ce.AwardID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.Gateway.Cancel(ctx, StableKey(AwardTarget(id), TypeAward, 0)); err != nil {
		return err
	}
	return p.Seen.Remove(ctx, id)
}
