/*
store.go - Persistence interfaces for the admin data plane

PURPOSE:
  Defines the storage contract the HTTP layer and CLI operate
  against. The engine itself only reads through the source interfaces
  in sources.go; this file adds the record CRUD an embedding
  application needs to feed those sources (admins create and edit
  exceptions, tasks, incidents, and user compensation).

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite (WAL mode, keyed upserts)
  - store/memory: In-memory for tests and dev runs

MUTABILITY NOTE:
  Work exceptions are editable by admins; by convention they should
  not be edited once referenced by a finalized snapshot. That
  convention is not enforced at the data layer: the snapshot keeps its
  frozen values regardless, which is exactly the audit property the
  snapshot path exists for.
*/
package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/comp-engine/scoring"
)

// =============================================================================
// USER - Team member with base compensation
// =============================================================================

type User struct {
	ID                  scoring.UserID
	Name                string
	Email               string
	BaseCompensationINR decimal.Decimal
	CreatedAt           time.Time
}

// =============================================================================
// ADMIN STORES - CRUD for the records the engine consumes
// =============================================================================

type UserStore interface {
	SaveUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id scoring.UserID) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

type ExceptionStore interface {
	SaveException(ctx context.Context, exc scoring.WorkException) error
	GetException(ctx context.Context, id string) (*scoring.WorkException, error)
	ListExceptions(ctx context.Context, cycle scoring.BillingCycle) ([]scoring.WorkException, error)
	DeleteException(ctx context.Context, id string) error
}

type TaskStore interface {
	SaveTask(ctx context.Context, task scoring.TaskRecord) error
}

type IncidentStore interface {
	SaveIncident(ctx context.Context, incident scoring.StabilityIncident) error
}

// =============================================================================
// STORE - Everything a deployment needs from one backend
// =============================================================================

// Store is the full persistence surface: engine read sources, the
// snapshot store, and the admin CRUD. A single backend satisfies all
// of it.
type Store interface {
	CompensationSource
	ExceptionSource
	TaskSource
	IncidentSource
	SnapshotStore
	UserStore
	ExceptionStore
	TaskStore
	IncidentStore
}
