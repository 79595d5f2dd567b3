/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements the repository read surface the compliance engine consumes
  (ce.Repository, ce.ReminderSource), the write surface the api layer
  uses, the durable notified-award set (notify.NotifiedSet), and
  preference persistence. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  credentials:              Credentials and their CE requirements
  special_categories:       Per-credential mandated sub-requirements
  renewal_periods:          Renewal cycles, incl. application/late-fee dates
  reinstatements:           One-to-one extra-CE info for lapsed periods
  reinstatement_categories: Per-category extra-CE sub-requirements
  activities:               CE-earning records
  activity_credentials:     Activity-to-credential links (many-to-many)
  disciplinary_actions:     Board sanctions with deadlines
  live_events:              Scheduled live CE events
  preferences:              Single-row reminder configuration (JSON)
  notified_awards:          Durable once-ever award state

DATE STORAGE:
  Day-valued fields are stored as "2006-01-02"; the live-event start time
  is stored as RFC3339. Decimal amounts are stored as TEXT to preserve
  precision.

FILTER SEMANTICS:
  FetchActivities loads candidate rows and applies ce.ActivityFilter
  in-process, so SQL and the in-memory store agree by construction on the
  filter predicate.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL
  (Write-Ahead Logging) for better read concurrency.

USAGE:
  store, err := sqlite.New("./data/ce.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ce/repository.go: Interface definitions
  - ce/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/credential-engine/ce"
	"github.com/warp/credential-engine/notify"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ ce.ReminderSource  = (*Store)(nil)
	_ notify.NotifiedSet = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS credentials (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		measurement_default TEXT NOT NULL,
		hours_per_unit TEXT NOT NULL,
		required_ces TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS special_categories (
		id TEXT PRIMARY KEY,
		credential_id TEXT NOT NULL REFERENCES credentials(id),
		name TEXT NOT NULL,
		required_hours TEXT NOT NULL,
		measurement_default TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_categories_credential
		ON special_categories(credential_id);

	CREATE TABLE IF NOT EXISTS renewal_periods (
		id TEXT PRIMARY KEY,
		credential_id TEXT NOT NULL REFERENCES credentials(id),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		application_window_start TEXT,
		late_fee_date TEXT,
		late_fee_amount TEXT,
		completed BOOLEAN DEFAULT FALSE
	);
	CREATE INDEX IF NOT EXISTS idx_periods_credential
		ON renewal_periods(credential_id, start_date);

	CREATE TABLE IF NOT EXISTS reinstatements (
		period_id TEXT PRIMARY KEY REFERENCES renewal_periods(id),
		total_extra_ces TEXT NOT NULL,
		deadline TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reinstatement_categories (
		period_id TEXT NOT NULL REFERENCES reinstatements(period_id),
		category_id TEXT NOT NULL,
		name TEXT NOT NULL,
		ces_required TEXT NOT NULL,
		UNIQUE(period_id, category_id)
	);

	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		awarded_value TEXT NOT NULL,
		awarded_unit TEXT NOT NULL,
		completed BOOLEAN DEFAULT FALSE,
		completion_date TEXT,
		expires_at TEXT,
		period_id TEXT,
		category_id TEXT,
		for_reinstatement BOOLEAN DEFAULT FALSE
	);
	CREATE INDEX IF NOT EXISTS idx_activities_period
		ON activities(period_id) WHERE period_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_activities_expiry
		ON activities(expires_at) WHERE expires_at IS NOT NULL;

	CREATE TABLE IF NOT EXISTS activity_credentials (
		activity_id TEXT NOT NULL REFERENCES activities(id),
		credential_id TEXT NOT NULL REFERENCES credentials(id),
		UNIQUE(activity_id, credential_id)
	);
	CREATE INDEX IF NOT EXISTS idx_activity_credentials_activity
		ON activity_credentials(activity_id);

	CREATE TABLE IF NOT EXISTS disciplinary_actions (
		id TEXT PRIMARY KEY,
		credential_id TEXT NOT NULL REFERENCES credentials(id),
		description TEXT NOT NULL,
		deadline TEXT NOT NULL,
		resolved BOOLEAN DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS live_events (
		id TEXT PRIMARY KEY,
		credential_id TEXT,
		title TEXT NOT NULL,
		starts_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_live_events_starts
		ON live_events(starts_at);

	CREATE TABLE IF NOT EXISTS preferences (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		config_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notified_awards (
		award_id TEXT PRIMARY KEY
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DATE HELPERS
// =============================================================================

const dayFormat = "2006-01-02"

func dayString(tp ce.TimePoint) string { return tp.StartOfDay().Time.Format(dayFormat) }

func dayStringPtr(tp *ce.TimePoint) any {
	if tp == nil {
		return nil
	}
	return dayString(*tp)
}

func parseDay(s string) (ce.TimePoint, error) {
	t, err := time.Parse(dayFormat, s)
	if err != nil {
		return ce.TimePoint{}, err
	}
	return ce.NewTimePoint(t.Year(), t.Month(), t.Day()), nil
}

func parseDayPtr(s sql.NullString) (*ce.TimePoint, error) {
	if !s.Valid {
		return nil, nil
	}
	tp, err := parseDay(s.String)
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// SaveCredential upserts a credential and replaces its special categories.
func (s *Store) SaveCredential(ctx context.Context, c ce.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (id, name, measurement_default, hours_per_unit, required_ces, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			measurement_default = excluded.measurement_default,
			hours_per_unit = excluded.hours_per_unit,
			required_ces = excluded.required_ces`,
		c.ID, c.Name, c.MeasurementDefault, c.HoursPerUnit.String(), c.RequiredCEs.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM special_categories WHERE credential_id = ?`, c.ID); err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}
	for _, cat := range c.SpecialCategories {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO special_categories (id, credential_id, name, required_hours, measurement_default)
			VALUES (?, ?, ?, ?, ?)`,
			cat.ID, c.ID, cat.Name, cat.RequiredHours.String(), cat.MeasurementDefault,
		)
		if err != nil {
			return fmt.Errorf("failed to save category: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) FetchCredential(ctx context.Context, id ce.CredentialID) (*ce.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, measurement_default, hours_per_unit, required_ces
		FROM credentials WHERE id = ?`, id)

	c, err := scanCredential(row)
	if err == sql.ErrNoRows {
		return nil, &ce.NotFoundError{Kind: "credential", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch credential: %w", err)
	}

	cats, err := s.fetchCategories(ctx, id)
	if err != nil {
		return nil, err
	}
	c.SpecialCategories = cats
	return c, nil
}

func (s *Store) FetchCredentials(ctx context.Context) ([]ce.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, measurement_default, hours_per_unit, required_ces
		FROM credentials ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var out []ce.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		cats, err := s.fetchCategories(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].SpecialCategories = cats
	}
	return out, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanCredential(row rowScanner) (*ce.Credential, error) {
	var c ce.Credential
	var ratio, required string
	if err := row.Scan(&c.ID, &c.Name, &c.MeasurementDefault, &ratio, &required); err != nil {
		return nil, err
	}
	c.HoursPerUnit = parseDecimal(ratio)
	c.RequiredCEs = parseDecimal(required)
	return &c, nil
}

func (s *Store) fetchCategories(ctx context.Context, credentialID ce.CredentialID) ([]ce.SpecialCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, credential_id, name, required_hours, measurement_default
		FROM special_categories WHERE credential_id = ? ORDER BY id`, credentialID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []ce.SpecialCategory
	for rows.Next() {
		var cat ce.SpecialCategory
		var required string
		if err := rows.Scan(&cat.ID, &cat.CredentialID, &cat.Name, &required, &cat.MeasurementDefault); err != nil {
			return nil, err
		}
		cat.RequiredHours = parseDecimal(required)
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (s *Store) FetchSpecialCategories(ctx context.Context, credentialID ce.CredentialID) ([]ce.SpecialCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchCategories(ctx, credentialID)
}

// =============================================================================
// RENEWAL PERIODS
// =============================================================================

// SaveRenewalPeriod upserts a period and its reinstatement info (if any).
func (s *Store) SaveRenewalPeriod(ctx context.Context, p ce.RenewalPeriod) error {
	if p.End.Before(p.Start) {
		return ce.ErrInvalidPeriod
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lateFee any
	if p.LateFeeAmount != nil {
		lateFee = p.LateFeeAmount.String()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO renewal_periods
		(id, credential_id, start_date, end_date, application_window_start, late_fee_date, late_fee_amount, completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			application_window_start = excluded.application_window_start,
			late_fee_date = excluded.late_fee_date,
			late_fee_amount = excluded.late_fee_amount,
			completed = excluded.completed`,
		p.ID, p.CredentialID, dayString(p.Start), dayString(p.End),
		dayStringPtr(p.ApplicationWindowStart), dayStringPtr(p.LateFeeDate), lateFee, p.Completed,
	)
	if err != nil {
		return fmt.Errorf("failed to save period: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reinstatement_categories WHERE period_id = ?`, p.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reinstatements WHERE period_id = ?`, p.ID); err != nil {
		return err
	}
	if ri := p.Reinstatement; ri != nil {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reinstatements (period_id, total_extra_ces, deadline)
			VALUES (?, ?, ?)`,
			p.ID, ri.TotalExtraCEs.String(), dayString(ri.Deadline),
		)
		if err != nil {
			return fmt.Errorf("failed to save reinstatement: %w", err)
		}
		for _, cat := range ri.Categories {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO reinstatement_categories (period_id, category_id, name, ces_required)
				VALUES (?, ?, ?, ?)`,
				p.ID, cat.CategoryID, cat.Name, cat.CEsRequired.String(),
			)
			if err != nil {
				return fmt.Errorf("failed to save reinstatement category: %w", err)
			}
		}
	}
	return tx.Commit()
}

func (s *Store) FetchRenewalPeriods(ctx context.Context, credentialID ce.CredentialID) ([]ce.RenewalPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryPeriods(ctx, `WHERE credential_id = ?`, credentialID)
}

func (s *Store) FetchRenewalPeriod(ctx context.Context, id ce.PeriodID) (*ce.RenewalPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	periods, err := s.queryPeriods(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, &ce.NotFoundError{Kind: "period", ID: string(id)}
	}
	return &periods[0], nil
}

func (s *Store) queryPeriods(ctx context.Context, where string, args ...any) ([]ce.RenewalPeriod, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, credential_id, start_date, end_date, application_window_start,
		       late_fee_date, late_fee_amount, completed
		FROM renewal_periods `+where+` ORDER BY start_date ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	var out []ce.RenewalPeriod
	for rows.Next() {
		var p ce.RenewalPeriod
		var start, end string
		var appWindow, lateFeeDate, lateFeeAmount sql.NullString
		if err := rows.Scan(&p.ID, &p.CredentialID, &start, &end, &appWindow, &lateFeeDate, &lateFeeAmount, &p.Completed); err != nil {
			return nil, err
		}
		if p.Start, err = parseDay(start); err != nil {
			return nil, err
		}
		if p.End, err = parseDay(end); err != nil {
			return nil, err
		}
		if p.ApplicationWindowStart, err = parseDayPtr(appWindow); err != nil {
			return nil, err
		}
		if p.LateFeeDate, err = parseDayPtr(lateFeeDate); err != nil {
			return nil, err
		}
		if lateFeeAmount.Valid {
			amt := parseDecimal(lateFeeAmount.String)
			p.LateFeeAmount = &amt
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.attachReinstatement(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) attachReinstatement(ctx context.Context, p *ce.RenewalPeriod) error {
	var total, deadline string
	err := s.db.QueryRowContext(ctx, `
		SELECT total_extra_ces, deadline FROM reinstatements WHERE period_id = ?`, p.ID,
	).Scan(&total, &deadline)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch reinstatement: %w", err)
	}

	ri := &ce.ReinstatementInfo{PeriodID: p.ID, TotalExtraCEs: parseDecimal(total)}
	if ri.Deadline, err = parseDay(deadline); err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id, name, ces_required
		FROM reinstatement_categories WHERE period_id = ? ORDER BY category_id`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cat ce.ReinstatementSpecialCat
		var required string
		if err := rows.Scan(&cat.CategoryID, &cat.Name, &required); err != nil {
			return err
		}
		cat.CEsRequired = parseDecimal(required)
		ri.Categories = append(ri.Categories, cat)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	p.Reinstatement = ri
	return nil
}

// =============================================================================
// ACTIVITIES
// =============================================================================

// SaveActivity upserts an activity and replaces its credential links.
func (s *Store) SaveActivity(ctx context.Context, a ce.Activity) error {
	if a.Awarded.IsNegative() {
		return ce.ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var periodID, categoryID any
	if a.PeriodID != nil {
		periodID = string(*a.PeriodID)
	}
	if a.CategoryID != nil {
		categoryID = string(*a.CategoryID)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO activities
		(id, title, awarded_value, awarded_unit, completed, completion_date, expires_at, period_id, category_id, for_reinstatement)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			awarded_value = excluded.awarded_value,
			awarded_unit = excluded.awarded_unit,
			completed = excluded.completed,
			completion_date = excluded.completion_date,
			expires_at = excluded.expires_at,
			period_id = excluded.period_id,
			category_id = excluded.category_id,
			for_reinstatement = excluded.for_reinstatement`,
		a.ID, a.Title, a.Awarded.Value.String(), a.Awarded.Unit, a.Completed,
		dayStringPtr(a.CompletionDate), dayStringPtr(a.ExpiresAt), periodID, categoryID, a.ForReinstatement,
	)
	if err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM activity_credentials WHERE activity_id = ?`, a.ID); err != nil {
		return err
	}
	for _, credID := range a.CredentialIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO activity_credentials (activity_id, credential_id) VALUES (?, ?)`,
			a.ID, credID,
		); err != nil {
			return fmt.Errorf("failed to link credential: %w", err)
		}
	}
	return tx.Commit()
}

// SetActivityPeriod applies one linkage change from the resolver's Relink
// pass. A nil periodID unassigns.
func (s *Store) SetActivityPeriod(ctx context.Context, id ce.ActivityID, periodID *ce.PeriodID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var val any
	if periodID != nil {
		val = string(*periodID)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE activities SET period_id = ? WHERE id = ?`, val, id)
	if err != nil {
		return fmt.Errorf("failed to set activity period: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ce.NotFoundError{Kind: "activity", ID: string(id)}
	}
	return nil
}

func (s *Store) FetchActivities(ctx context.Context, filter ce.ActivityFilter) ([]ce.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, awarded_value, awarded_unit, completed, completion_date,
		       expires_at, period_id, category_id, for_reinstatement
		FROM activities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var all []ce.Activity
	for rows.Next() {
		var a ce.Activity
		var value, unit string
		var completion, expires, periodID, categoryID sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &value, &unit, &a.Completed, &completion, &expires, &periodID, &categoryID, &a.ForReinstatement); err != nil {
			return nil, err
		}
		a.Awarded = ce.Amount{Value: parseDecimal(value), Unit: ce.Unit(unit)}
		if a.CompletionDate, err = parseDayPtr(completion); err != nil {
			return nil, err
		}
		if a.ExpiresAt, err = parseDayPtr(expires); err != nil {
			return nil, err
		}
		if periodID.Valid {
			pid := ce.PeriodID(periodID.String)
			a.PeriodID = &pid
		}
		if categoryID.Valid {
			cid := ce.CategoryID(categoryID.String)
			a.CategoryID = &cid
		}
		all = append(all, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range all {
		if err := s.attachCredentialLinks(ctx, &all[i]); err != nil {
			return nil, err
		}
	}

	// Same predicate as the in-memory store, applied in-process.
	var out []ce.Activity
	for _, a := range all {
		if filter.Matches(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) attachCredentialLinks(ctx context.Context, a *ce.Activity) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT credential_id FROM activity_credentials WHERE activity_id = ? ORDER BY credential_id`, a.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var credID ce.CredentialID
		if err := rows.Scan(&credID); err != nil {
			return err
		}
		a.CredentialIDs = append(a.CredentialIDs, credID)
	}
	return rows.Err()
}

// =============================================================================
// DISCIPLINARY ACTIONS & LIVE EVENTS
// =============================================================================

func (s *Store) SaveDisciplinaryAction(ctx context.Context, d ce.DisciplinaryAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disciplinary_actions (id, credential_id, description, deadline, resolved)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			deadline = excluded.deadline,
			resolved = excluded.resolved`,
		d.ID, d.CredentialID, d.Description, dayString(d.Deadline), d.Resolved,
	)
	if err != nil {
		return fmt.Errorf("failed to save disciplinary action: %w", err)
	}
	return nil
}

func (s *Store) FetchDisciplinaryActions(ctx context.Context) ([]ce.DisciplinaryAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, credential_id, description, deadline, resolved
		FROM disciplinary_actions WHERE resolved = FALSE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query disciplinary actions: %w", err)
	}
	defer rows.Close()

	var out []ce.DisciplinaryAction
	for rows.Next() {
		var d ce.DisciplinaryAction
		var deadline string
		if err := rows.Scan(&d.ID, &d.CredentialID, &d.Description, &deadline, &d.Resolved); err != nil {
			return nil, err
		}
		if d.Deadline, err = parseDay(deadline); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) SaveLiveEvent(ctx context.Context, e ce.LiveEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var credID any
	if e.CredentialID != nil {
		credID = string(*e.CredentialID)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO live_events (id, credential_id, title, starts_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			credential_id = excluded.credential_id,
			title = excluded.title,
			starts_at = excluded.starts_at`,
		e.ID, credID, e.Title, e.StartsAt.Time.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save live event: %w", err)
	}
	return nil
}

func (s *Store) FetchLiveEvents(ctx context.Context, asOf ce.TimePoint) ([]ce.LiveEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, credential_id, title, starts_at
		FROM live_events WHERE starts_at >= ? ORDER BY starts_at ASC`,
		asOf.StartOfDay().Time.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query live events: %w", err)
	}
	defer rows.Close()

	var out []ce.LiveEvent
	for rows.Next() {
		var e ce.LiveEvent
		var credID sql.NullString
		var starts string
		if err := rows.Scan(&e.ID, &credID, &e.Title, &starts); err != nil {
			return nil, err
		}
		if credID.Valid {
			id := ce.CredentialID(credID.String)
			e.CredentialID = &id
		}
		t, err := time.Parse(time.RFC3339, starts)
		if err != nil {
			return nil, err
		}
		e.StartsAt = ce.FromTime(t)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// PREFERENCES - Single-row reminder configuration
// =============================================================================

// SavePreferences persists the reminder configuration.
func (s *Store) SavePreferences(ctx context.Context, prefs notify.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO preferences (id, config_json) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET config_json = excluded.config_json`,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// LoadPreferences returns the stored configuration, or defaults when none
// has been saved yet.
func (s *Store) LoadPreferences(ctx context.Context) (notify.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT config_json FROM preferences WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return notify.DefaultPreferences(), nil
	}
	if err != nil {
		return notify.Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}

	var prefs notify.Preferences
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		return notify.Preferences{}, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return prefs.Normalized(), nil
}

// =============================================================================
// NOTIFIED AWARDS (notify.NotifiedSet)
// =============================================================================

func (s *Store) Contains(ctx context.Context, id ce.AwardID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notified_awards WHERE award_id = ?`, id,
	).Scan(&count)
	return count > 0, err
}

func (s *Store) Add(ctx context.Context, id ce.AwardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO notified_awards (award_id) VALUES (?)`, id)
	return err
}

func (s *Store) Remove(ctx context.Context, id ce.AwardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM notified_awards WHERE award_id = ?`, id)
	return err
}
