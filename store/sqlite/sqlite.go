/*
Package sqlite provides a SQLite-backed implementation of payroll.Store.

PURPOSE:
  Production persistence for the compensation engine. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  users:               Team members with base compensation
  work_exceptions:     Attendance exceptions (admin-editable)
  completed_tasks:     Task completions with quality ratings
  stability_incidents: Production issues attributed to users
  payout_snapshots:    Frozen per-user-per-cycle computations

SNAPSHOT UPSERT:
  payout_snapshots carries UNIQUE(user_id, cycle_start). Re-syncing a
  cycle hits ON CONFLICT DO UPDATE, which overwrites the computed
  fields while preserving the row's id. That unique key is also the
  concurrency boundary for simultaneous syncs of the same user+cycle:
  last writer wins, no lost updates.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't
  block during sync writes.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - payroll/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/comp-engine/payroll"
	"github.com/warp/comp-engine/scoring"
)

// Store implements payroll.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time check against the full persistence surface.
var _ payroll.Store = (*Store)(nil)

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
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

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		base_compensation_inr TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS work_exceptions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		exception_type TEXT NOT NULL,
		exception_date TEXT NOT NULL,
		scheduled_time_epoch INTEGER,
		actual_time_epoch INTEGER,
		compensation_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_exceptions_user_date
		ON work_exceptions(user_id, exception_date);
	CREATE INDEX IF NOT EXISTS idx_exceptions_date
		ON work_exceptions(exception_date);

	CREATE TABLE IF NOT EXISTS completed_tasks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		score REAL NOT NULL,
		rated INTEGER NOT NULL DEFAULT 0,
		completed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_user_completed
		ON completed_tasks(user_id, completed_at);

	CREATE TABLE IF NOT EXISTS stability_incidents (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		severity TEXT NOT NULL,
		occurred_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_incidents_user_occurred
		ON stability_incidents(user_id, occurred_at);

	CREATE TABLE IF NOT EXISTS payout_snapshots (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		cycle_start TEXT NOT NULL,
		cycle_end TEXT NOT NULL,
		monthly_output_score REAL NOT NULL,
		availability_score REAL NOT NULL,
		stability_score REAL NOT NULL,
		base_compensation_inr TEXT NOT NULL,
		expected_payout_inr TEXT NOT NULL,
		difference_inr TEXT NOT NULL,
		working_days_in_cycle INTEGER NOT NULL,
		snapshot_date TEXT NOT NULL,
		synced_by_id TEXT NOT NULL,
		UNIQUE(user_id, cycle_start)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_cycle
		ON payout_snapshots(cycle_start);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS (payroll.UserStore + payroll.CompensationSource)
// =============================================================================

func (s *Store) SaveUser(ctx context.Context, user payroll.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (id, name, email, base_compensation_inr, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			base_compensation_inr = excluded.base_compensation_inr
	`
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		string(user.ID), user.Name, user.Email,
		user.BaseCompensationINR.String(),
		createdAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetUser(ctx context.Context, id scoring.UserID) (*payroll.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		user      payroll.User
		userID    string
		baseComp  string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, base_compensation_inr, created_at FROM users WHERE id = ?",
		string(id),
	).Scan(&userID, &user.Name, &user.Email, &baseComp, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.ID = scoring.UserID(userID)
	user.BaseCompensationINR = mustDecimal(baseComp)
	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]payroll.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, base_compensation_inr, created_at FROM users ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []payroll.User
	for rows.Next() {
		var (
			user      payroll.User
			userID    string
			baseComp  string
			createdAt string
		)
		if err := rows.Scan(&userID, &user.Name, &user.Email, &baseComp, &createdAt); err != nil {
			return nil, err
		}
		user.ID = scoring.UserID(userID)
		user.BaseCompensationINR = mustDecimal(baseComp)
		user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) BaseCompensation(ctx context.Context, userID scoring.UserID) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var baseComp string
	err := s.db.QueryRowContext(ctx,
		"SELECT base_compensation_inr FROM users WHERE id = ?",
		string(userID),
	).Scan(&baseComp)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	amount := mustDecimal(baseComp)
	if amount.IsZero() {
		return decimal.Zero, false, nil
	}
	return amount, true, nil
}

// =============================================================================
// WORK EXCEPTIONS (payroll.ExceptionStore + payroll.ExceptionSource)
// =============================================================================

func (s *Store) SaveException(ctx context.Context, exc scoring.WorkException) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO work_exceptions
			(id, user_id, exception_type, exception_date, scheduled_time_epoch, actual_time_epoch, compensation_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			exception_type = excluded.exception_type,
			exception_date = excluded.exception_date,
			scheduled_time_epoch = excluded.scheduled_time_epoch,
			actual_time_epoch = excluded.actual_time_epoch,
			compensation_date = excluded.compensation_date
	`
	var compDate any
	if exc.CompensationDate != nil {
		compDate = exc.CompensationDate.UTC().Format(time.RFC3339)
	}
	createdAt := exc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		exc.ID, string(exc.UserID), string(exc.Type),
		exc.Date.UTC().Format(time.RFC3339),
		exc.ScheduledTimeEpoch, exc.ActualTimeEpoch,
		compDate, createdAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetException(ctx context.Context, id string) (*scoring.WorkException, error) {
	exceptions, err := s.queryExceptions(ctx, selectExceptions+" WHERE id = ?", id)
	if err != nil || len(exceptions) == 0 {
		return nil, err
	}
	return &exceptions[0], nil
}

func (s *Store) DeleteException(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM work_exceptions WHERE id = ?", id)
	return err
}

func (s *Store) ListExceptions(ctx context.Context, cycle scoring.BillingCycle) ([]scoring.WorkException, error) {
	return s.queryExceptions(ctx,
		selectExceptions+" WHERE exception_date >= ? AND exception_date < ? ORDER BY created_at",
		cycle.Start.Format(time.RFC3339), cycleUpperBound(cycle),
	)
}

func (s *Store) ExceptionsInCycle(ctx context.Context, userID scoring.UserID, cycle scoring.BillingCycle) ([]scoring.WorkException, error) {
	return s.queryExceptions(ctx,
		selectExceptions+" WHERE user_id = ? AND exception_date >= ? AND exception_date < ? ORDER BY created_at",
		string(userID), cycle.Start.Format(time.RFC3339), cycleUpperBound(cycle),
	)
}

// cycleUpperBound renders the cycle window's exclusive end. Stored
// timestamps carry no subseconds while cycle.End is 23:59:59.999, so
// comparing RFC3339 strings against the inclusive end would drop
// records in the final second of the end day. Comparing strictly
// before the next cycle's first instant keeps the window identical to
// BillingCycle.Contains.
func cycleUpperBound(cycle scoring.BillingCycle) string {
	return cycle.End.Add(time.Millisecond).UTC().Format(time.RFC3339)
}

const selectExceptions = `
	SELECT id, user_id, exception_type, exception_date, scheduled_time_epoch, actual_time_epoch, compensation_date, created_at
	FROM work_exceptions`

func (s *Store) queryExceptions(ctx context.Context, query string, args ...any) ([]scoring.WorkException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exceptions: %w", err)
	}
	defer rows.Close()

	var exceptions []scoring.WorkException
	for rows.Next() {
		exc, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, exc)
	}
	return exceptions, rows.Err()
}

func scanException(rows *sql.Rows) (scoring.WorkException, error) {
	var (
		exc       scoring.WorkException
		userID    string
		excType   string
		excDate   string
		scheduled sql.NullInt64
		actual    sql.NullInt64
		compDate  sql.NullString
		createdAt string
	)
	err := rows.Scan(&exc.ID, &userID, &excType, &excDate, &scheduled, &actual, &compDate, &createdAt)
	if err != nil {
		return exc, fmt.Errorf("failed to scan exception: %w", err)
	}

	exc.UserID = scoring.UserID(userID)
	exc.Type = scoring.ExceptionType(excType)
	exc.Date, _ = time.Parse(time.RFC3339, excDate)
	exc.ScheduledTimeEpoch = scheduled.Int64
	exc.ActualTimeEpoch = actual.Int64
	if compDate.Valid && compDate.String != "" {
		if t, err := time.Parse(time.RFC3339, compDate.String); err == nil {
			exc.CompensationDate = &t
		}
	}
	exc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return exc, nil
}

// =============================================================================
// COMPLETED TASKS (payroll.TaskStore + payroll.TaskSource)
// =============================================================================

func (s *Store) SaveTask(ctx context.Context, task scoring.TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO completed_tasks (id, user_id, score, rated, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			score = excluded.score,
			rated = excluded.rated,
			completed_at = excluded.completed_at
	`
	rated := 0
	if task.Rated {
		rated = 1
	}
	_, err := s.db.ExecContext(ctx, query,
		task.ID, string(task.UserID), task.Score, rated,
		task.CompletedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) TasksInCycle(ctx context.Context, userID scoring.UserID, cycle scoring.BillingCycle) ([]scoring.TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, score, rated, completed_at
		FROM completed_tasks
		WHERE user_id = ? AND completed_at >= ? AND completed_at < ?
		ORDER BY completed_at`,
		string(userID), cycle.Start.Format(time.RFC3339), cycleUpperBound(cycle),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []scoring.TaskRecord
	for rows.Next() {
		var (
			task        scoring.TaskRecord
			uid         string
			rated       int
			completedAt string
		)
		if err := rows.Scan(&task.ID, &uid, &task.Score, &rated, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		task.UserID = scoring.UserID(uid)
		task.Rated = rated != 0
		task.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// =============================================================================
// STABILITY INCIDENTS (payroll.IncidentStore + payroll.IncidentSource)
// =============================================================================

func (s *Store) SaveIncident(ctx context.Context, incident scoring.StabilityIncident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO stability_incidents (id, user_id, severity, occurred_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			severity = excluded.severity,
			occurred_at = excluded.occurred_at
	`
	_, err := s.db.ExecContext(ctx, query,
		incident.ID, string(incident.UserID), string(incident.Severity),
		incident.OccurredAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) IncidentsInCycle(ctx context.Context, userID scoring.UserID, cycle scoring.BillingCycle) ([]scoring.StabilityIncident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, severity, occurred_at
		FROM stability_incidents
		WHERE user_id = ? AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at`,
		string(userID), cycle.Start.Format(time.RFC3339), cycleUpperBound(cycle),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	var incidents []scoring.StabilityIncident
	for rows.Next() {
		var (
			inc        scoring.StabilityIncident
			uid        string
			severity   string
			occurredAt string
		)
		if err := rows.Scan(&inc.ID, &uid, &severity, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		inc.UserID = scoring.UserID(uid)
		inc.Severity = scoring.IncidentSeverity(severity)
		inc.OccurredAt, _ = time.Parse(time.RFC3339, occurredAt)
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// =============================================================================
// PAYOUT SNAPSHOTS (payroll.SnapshotStore)
// =============================================================================

func (s *Store) Upsert(ctx context.Context, snap payroll.PayoutSnapshot) (payroll.PayoutSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The UNIQUE(user_id, cycle_start) constraint makes re-sync an
	// overwrite. The row id survives so external references stay valid.
	query := `
		INSERT INTO payout_snapshots
			(id, user_id, cycle_start, cycle_end,
			 monthly_output_score, availability_score, stability_score,
			 base_compensation_inr, expected_payout_inr, difference_inr,
			 working_days_in_cycle, snapshot_date, synced_by_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, cycle_start) DO UPDATE SET
			cycle_end = excluded.cycle_end,
			monthly_output_score = excluded.monthly_output_score,
			availability_score = excluded.availability_score,
			stability_score = excluded.stability_score,
			base_compensation_inr = excluded.base_compensation_inr,
			expected_payout_inr = excluded.expected_payout_inr,
			difference_inr = excluded.difference_inr,
			working_days_in_cycle = excluded.working_days_in_cycle,
			snapshot_date = excluded.snapshot_date,
			synced_by_id = excluded.synced_by_id
	`
	_, err := s.db.ExecContext(ctx, query,
		snap.ID, string(snap.UserID),
		snap.CycleStart.UTC().Format(time.RFC3339),
		snap.CycleEnd.UTC().Format(time.RFC3339Nano),
		snap.MonthlyOutputScore, snap.AvailabilityScore, snap.StabilityScore,
		snap.BaseCompensationINR.String(),
		snap.ExpectedPayoutINR.String(),
		snap.DifferenceINR.String(),
		snap.WorkingDaysInCycle,
		snap.SnapshotDate.UTC().Format(time.RFC3339),
		snap.SyncedByID,
	)
	if err != nil {
		return payroll.PayoutSnapshot{}, fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	stored, err := s.getSnapshot(ctx, snap.UserID, snap.CycleStart)
	if err != nil {
		return payroll.PayoutSnapshot{}, err
	}
	return *stored, nil
}

func (s *Store) Get(ctx context.Context, userID scoring.UserID, cycleStart time.Time) (*payroll.PayoutSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSnapshot(ctx, userID, cycleStart)
}

func (s *Store) getSnapshot(ctx context.Context, userID scoring.UserID, cycleStart time.Time) (*payroll.PayoutSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		selectSnapshots+" WHERE user_id = ? AND cycle_start = ?",
		string(userID), cycleStart.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	snap, err := scanSnapshot(rows)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) ListByCycle(ctx context.Context, cycleStart time.Time) ([]payroll.PayoutSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		selectSnapshots+" WHERE cycle_start = ? ORDER BY user_id",
		cycleStart.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []payroll.PayoutSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

const selectSnapshots = `
	SELECT id, user_id, cycle_start, cycle_end,
	       monthly_output_score, availability_score, stability_score,
	       base_compensation_inr, expected_payout_inr, difference_inr,
	       working_days_in_cycle, snapshot_date, synced_by_id
	FROM payout_snapshots`

func scanSnapshot(rows *sql.Rows) (payroll.PayoutSnapshot, error) {
	var (
		snap         payroll.PayoutSnapshot
		userID       string
		cycleStart   string
		cycleEnd     string
		baseComp     string
		expected     string
		difference   string
		snapshotDate string
	)
	err := rows.Scan(
		&snap.ID, &userID, &cycleStart, &cycleEnd,
		&snap.MonthlyOutputScore, &snap.AvailabilityScore, &snap.StabilityScore,
		&baseComp, &expected, &difference,
		&snap.WorkingDaysInCycle, &snapshotDate, &snap.SyncedByID,
	)
	if err != nil {
		return snap, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	snap.UserID = scoring.UserID(userID)
	snap.CycleStart, _ = time.Parse(time.RFC3339, cycleStart)
	snap.CycleEnd, _ = time.Parse(time.RFC3339Nano, cycleEnd)
	snap.BaseCompensationINR = mustDecimal(baseComp)
	snap.ExpectedPayoutINR = mustDecimal(expected)
	snap.DifferenceINR = mustDecimal(difference)
	snap.SnapshotDate, _ = time.Parse(time.RFC3339, snapshotDate)
	return snap, nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
