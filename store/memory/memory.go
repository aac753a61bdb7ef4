// Package memory provides an in-memory payroll.Store implementation
// for tests and development runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/comp-engine/payroll"
	"github.com/warp/comp-engine/scoring"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu         sync.RWMutex
	users      map[scoring.UserID]payroll.User
	exceptions map[string]scoring.WorkException
	tasks      map[string]scoring.TaskRecord
	incidents  map[string]scoring.StabilityIncident
	snapshots  map[snapshotKey]payroll.PayoutSnapshot
}

type snapshotKey struct {
	UserID     scoring.UserID
	CycleStart time.Time
}

func New() *Store {
	return &Store{
		users:      make(map[scoring.UserID]payroll.User),
		exceptions: make(map[string]scoring.WorkException),
		tasks:      make(map[string]scoring.TaskRecord),
		incidents:  make(map[string]scoring.StabilityIncident),
		snapshots:  make(map[snapshotKey]payroll.PayoutSnapshot),
	}
}

// Compile-time check that Store satisfies the full persistence surface.
var _ payroll.Store = (*Store)(nil)

// =============================================================================
// USERS
// =============================================================================

func (s *Store) SaveUser(_ context.Context, user payroll.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, id scoring.UserID) (*payroll.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *Store) ListUsers(_ context.Context) ([]payroll.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]payroll.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *Store) BaseCompensation(_ context.Context, userID scoring.UserID) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok || user.BaseCompensationINR.IsZero() {
		return decimal.Zero, false, nil
	}
	return user.BaseCompensationINR, true, nil
}

// =============================================================================
// WORK EXCEPTIONS
// =============================================================================

func (s *Store) SaveException(_ context.Context, exc scoring.WorkException) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exceptions[exc.ID] = exc
	return nil
}

func (s *Store) GetException(_ context.Context, id string) (*scoring.WorkException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exc, ok := s.exceptions[id]
	if !ok {
		return nil, nil
	}
	return &exc, nil
}

func (s *Store) DeleteException(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.exceptions, id)
	return nil
}

func (s *Store) ListExceptions(_ context.Context, cycle scoring.BillingCycle) ([]scoring.WorkException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []scoring.WorkException
	for _, exc := range s.exceptions {
		if cycle.Contains(exc.Date) {
			result = append(result, exc)
		}
	}
	sortExceptions(result)
	return result, nil
}

func (s *Store) ExceptionsInCycle(_ context.Context, userID scoring.UserID, cycle scoring.BillingCycle) ([]scoring.WorkException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []scoring.WorkException
	for _, exc := range s.exceptions {
		if exc.UserID == userID && cycle.Contains(exc.Date) {
			result = append(result, exc)
		}
	}
	sortExceptions(result)
	return result, nil
}

func sortExceptions(excs []scoring.WorkException) {
	sort.SliceStable(excs, func(i, j int) bool {
		return excs[i].CreatedAt.Before(excs[j].CreatedAt)
	})
}

// =============================================================================
// TASKS
// =============================================================================

func (s *Store) SaveTask(_ context.Context, task scoring.TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return nil
}

func (s *Store) TasksInCycle(_ context.Context, userID scoring.UserID, cycle scoring.BillingCycle) ([]scoring.TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []scoring.TaskRecord
	for _, task := range s.tasks {
		if task.UserID == userID && cycle.Contains(task.CompletedAt) {
			result = append(result, task)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CompletedAt.Before(result[j].CompletedAt) })
	return result, nil
}

// =============================================================================
// STABILITY INCIDENTS
// =============================================================================

func (s *Store) SaveIncident(_ context.Context, incident scoring.StabilityIncident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents[incident.ID] = incident
	return nil
}

func (s *Store) IncidentsInCycle(_ context.Context, userID scoring.UserID, cycle scoring.BillingCycle) ([]scoring.StabilityIncident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []scoring.StabilityIncident
	for _, inc := range s.incidents {
		if inc.UserID == userID && cycle.Contains(inc.OccurredAt) {
			result = append(result, inc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OccurredAt.Before(result[j].OccurredAt) })
	return result, nil
}

// =============================================================================
// SNAPSHOTS - Upsert keyed by (user, cycle start)
// =============================================================================

func (s *Store) Upsert(_ context.Context, snap payroll.PayoutSnapshot) (payroll.PayoutSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := snapshotKey{UserID: snap.UserID, CycleStart: snap.CycleStart.UTC()}
	if existing, ok := s.snapshots[k]; ok {
		// Overwrite semantics: the record identity survives re-sync.
		snap.ID = existing.ID
	}
	s.snapshots[k] = snap
	return snap, nil
}

func (s *Store) Get(_ context.Context, userID scoring.UserID, cycleStart time.Time) (*payroll.PayoutSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[snapshotKey{UserID: userID, CycleStart: cycleStart.UTC()}]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *Store) ListByCycle(_ context.Context, cycleStart time.Time) ([]payroll.PayoutSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []payroll.PayoutSnapshot
	for k, snap := range s.snapshots {
		if k.CycleStart.Equal(cycleStart.UTC()) {
			result = append(result, snap)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}
