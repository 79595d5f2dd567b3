/*
repository.go - Read interface between the engine and persistence

PURPOSE:
  Defines the narrow query surface the calculators and the notification
  planner consume. The core holds no ambient state: repositories are
  injected, never referenced globally.

FILTERS:
  Queries take simple predicate objects (ActivityFilter) rather than ad-hoc
  method variants. A nil field means "don't care". The core treats an empty
  result set identically to "nothing to compute".

IMPLEMENTATIONS:
  - store/memory.go: In-memory, for tests and dev
  - store/sqlite:    Production SQLite

SEE ALSO:
  - compliance.go, reinstatement.go: Calculator consumers
  - notify/replan.go: Planner consumer
*/
package ce

import "context"

// =============================================================================
// ACTIVITY FILTER - Predicate object for activity queries
// =============================================================================

// ActivityFilter narrows FetchActivities. Nil fields are ignored.
type ActivityFilter struct {
	CredentialID     *CredentialID
	PeriodID         *PeriodID
	CategoryID       *CategoryID
	Completed        *bool
	ForReinstatement *bool

	// Completion date range, inclusive on both ends.
	CompletedFrom *TimePoint
	CompletedTo   *TimePoint

	// Activities whose ExpiresAt falls in [ExpiresFrom, ExpiresTo].
	ExpiresFrom *TimePoint
	ExpiresTo   *TimePoint
}

// Matches applies the filter in-process. Store implementations may push
// the predicates into SQL instead; both must agree, so the in-memory store
// and the tests use this as the reference semantics.
func (f ActivityFilter) Matches(a Activity) bool {
	if f.CredentialID != nil && !hasCredential(a, *f.CredentialID) {
		return false
	}
	if f.PeriodID != nil && (a.PeriodID == nil || *a.PeriodID != *f.PeriodID) {
		return false
	}
	if f.CategoryID != nil && (a.CategoryID == nil || *a.CategoryID != *f.CategoryID) {
		return false
	}
	if f.Completed != nil && a.Completed != *f.Completed {
		return false
	}
	if f.ForReinstatement != nil && a.ForReinstatement != *f.ForReinstatement {
		return false
	}
	if f.CompletedFrom != nil || f.CompletedTo != nil {
		if a.CompletionDate == nil {
			return false
		}
		if f.CompletedFrom != nil && a.CompletionDate.Before(*f.CompletedFrom) {
			return false
		}
		if f.CompletedTo != nil && a.CompletionDate.After(*f.CompletedTo) {
			return false
		}
	}
	if f.ExpiresFrom != nil || f.ExpiresTo != nil {
		if a.ExpiresAt == nil {
			return false
		}
		if f.ExpiresFrom != nil && a.ExpiresAt.Before(*f.ExpiresFrom) {
			return false
		}
		if f.ExpiresTo != nil && a.ExpiresAt.After(*f.ExpiresTo) {
			return false
		}
	}
	return true
}

func hasCredential(a Activity, id CredentialID) bool {
	for _, c := range a.CredentialIDs {
		if c == id {
			return true
		}
	}
	return false
}

// =============================================================================
// REPOSITORY - Read surface consumed by the core
// =============================================================================

// Repository is the read interface the calculators and planner consume.
// Write operations belong to the surrounding application (api package),
// which talks to the concrete store directly.
type Repository interface {
	// FetchCredential returns ErrCredentialNotFound when absent.
	FetchCredential(ctx context.Context, id CredentialID) (*Credential, error)

	// FetchCredentials returns all credentials.
	FetchCredentials(ctx context.Context) ([]Credential, error)

	// FetchActivities returns activities matching the filter.
	FetchActivities(ctx context.Context, filter ActivityFilter) ([]Activity, error)

	// FetchRenewalPeriods returns all renewal periods of a credential.
	FetchRenewalPeriods(ctx context.Context, credentialID CredentialID) ([]RenewalPeriod, error)

	// FetchRenewalPeriod returns ErrPeriodNotFound when absent.
	FetchRenewalPeriod(ctx context.Context, id PeriodID) (*RenewalPeriod, error)

	// FetchSpecialCategories returns the categories assigned to a credential.
	FetchSpecialCategories(ctx context.Context, credentialID CredentialID) ([]SpecialCategory, error)
}

// ReminderSource extends Repository with the entity types the notification
// planner watches beyond activities and periods.
type ReminderSource interface {
	Repository

	// FetchDisciplinaryActions returns unresolved actions only.
	FetchDisciplinaryActions(ctx context.Context) ([]DisciplinaryAction, error)

	// FetchLiveEvents returns events starting at or after asOf.
	FetchLiveEvents(ctx context.Context, asOf TimePoint) ([]LiveEvent, error)
}
