/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the HTTP surface. These decouple the internal
  domain model from the external contract: scores serialize as plain
  numbers, money as decimal strings, instants as RFC3339.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers
  run the validator before touching the store.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/comp-engine/payroll"
	"github.com/warp/comp-engine/scoring"
)

// =============================================================================
// CYCLES
// =============================================================================

type CycleDTO struct {
	Key   string `json:"key"`
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

func toCycleDTO(c scoring.BillingCycle) CycleDTO {
	return CycleDTO{
		Key:   c.Key(),
		Start: c.Start.Format(time.RFC3339),
		End:   c.End.Format(time.RFC3339Nano),
		Label: c.Label(),
	}
}

// =============================================================================
// SCORES
// =============================================================================

// ScoreDTO is one user's computed (or frozen) result for a cycle.
type ScoreDTO struct {
	UserID              string  `json:"user_id"`
	AvailabilityScore   float64 `json:"availability_score"`
	StabilityScore      float64 `json:"stability_score"`
	MonthlyOutputScore  float64 `json:"monthly_output_score"`
	BaseCompensationINR string  `json:"base_compensation_inr"`
	ExpectedPayoutINR   string  `json:"expected_payout_inr"`
	DifferenceINR       string  `json:"difference_inr"`
	WorkingDaysInCycle  int     `json:"working_days_in_cycle"`
}

func liveToScoreDTO(s payroll.LiveScore) ScoreDTO {
	return ScoreDTO{
		UserID:              string(s.UserID),
		AvailabilityScore:   s.Scores.AvailabilityScore,
		StabilityScore:      s.Scores.StabilityScore,
		MonthlyOutputScore:  s.Scores.MonthlyOutputScore,
		BaseCompensationINR: s.BaseCompensationINR.String(),
		ExpectedPayoutINR:   s.Payout.ExpectedINR.String(),
		DifferenceINR:       s.Payout.DifferenceINR.String(),
		WorkingDaysInCycle:  s.WorkingDaysInCycle,
	}
}

// ScoresResponse wraps a cycle's scores with which read path served
// them: "live" (recomputed now) or "snapshot" (frozen record).
type ScoresResponse struct {
	Cycle  CycleDTO   `json:"cycle"`
	Mode   string     `json:"mode"`
	Scores []ScoreDTO `json:"scores"`
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

type SnapshotDTO struct {
	ID                  string  `json:"id"`
	UserID              string  `json:"user_id"`
	CycleStart          string  `json:"cycle_start"`
	CycleEnd            string  `json:"cycle_end"`
	AvailabilityScore   float64 `json:"availability_score"`
	StabilityScore      float64 `json:"stability_score"`
	MonthlyOutputScore  float64 `json:"monthly_output_score"`
	BaseCompensationINR string  `json:"base_compensation_inr"`
	ExpectedPayoutINR   string  `json:"expected_payout_inr"`
	DifferenceINR       string  `json:"difference_inr"`
	WorkingDaysInCycle  int     `json:"working_days_in_cycle"`
	SnapshotDate        string  `json:"snapshot_date"`
	SyncedByID          string  `json:"synced_by_id"`
}

func toSnapshotDTO(s payroll.PayoutSnapshot) SnapshotDTO {
	return SnapshotDTO{
		ID:                  s.ID,
		UserID:              string(s.UserID),
		CycleStart:          s.CycleStart.Format(time.RFC3339),
		CycleEnd:            s.CycleEnd.Format(time.RFC3339Nano),
		AvailabilityScore:   s.AvailabilityScore,
		StabilityScore:      s.StabilityScore,
		MonthlyOutputScore:  s.MonthlyOutputScore,
		BaseCompensationINR: s.BaseCompensationINR.String(),
		ExpectedPayoutINR:   s.ExpectedPayoutINR.String(),
		DifferenceINR:       s.DifferenceINR.String(),
		WorkingDaysInCycle:  s.WorkingDaysInCycle,
		SnapshotDate:        s.SnapshotDate.Format(time.RFC3339),
		SyncedByID:          s.SyncedByID,
	}
}

func snapshotToScoreDTO(s payroll.PayoutSnapshot) ScoreDTO {
	return ScoreDTO{
		UserID:              string(s.UserID),
		AvailabilityScore:   s.AvailabilityScore,
		StabilityScore:      s.StabilityScore,
		MonthlyOutputScore:  s.MonthlyOutputScore,
		BaseCompensationINR: s.BaseCompensationINR.String(),
		ExpectedPayoutINR:   s.ExpectedPayoutINR.String(),
		DifferenceINR:       s.DifferenceINR.String(),
		WorkingDaysInCycle:  s.WorkingDaysInCycle,
	}
}

// =============================================================================
// SYNC
// =============================================================================

type SyncRequest struct {
	Date     string   `json:"date" validate:"required"`
	UserIDs  []string `json:"user_ids"` // empty = all users
	SyncedBy string   `json:"synced_by" validate:"required"`
}

type SyncFailureDTO struct {
	UserID string `json:"user_id"`
	Step   string `json:"step"`
	Error  string `json:"error"`
}

type SyncResponse struct {
	Cycle     CycleDTO         `json:"cycle"`
	Snapshots []SnapshotDTO    `json:"snapshots"`
	Failures  []SyncFailureDTO `json:"failures,omitempty"`
}

// =============================================================================
// USERS
// =============================================================================

type UserDTO struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	BaseCompensationINR string `json:"base_compensation_inr"`
}

type SaveUserRequest struct {
	ID                  string `json:"id" validate:"required"`
	Name                string `json:"name" validate:"required"`
	Email               string `json:"email" validate:"required,email"`
	BaseCompensationINR string `json:"base_compensation_inr" validate:"required"`
}

// =============================================================================
// WORK EXCEPTIONS
// =============================================================================

type ExceptionDTO struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"user_id"`
	Type               string  `json:"type"`
	Date               string  `json:"date"`
	ScheduledTimeEpoch int64   `json:"scheduled_time_epoch,omitempty"`
	ActualTimeEpoch    int64   `json:"actual_time_epoch,omitempty"`
	CompensationDate   *string `json:"compensation_date,omitempty"`
	CreatedAt          string  `json:"created_at,omitempty"`
}

type SaveExceptionRequest struct {
	UserID             string  `json:"user_id" validate:"required"`
	Type               string  `json:"type" validate:"required,oneof=FULL_DAY_LEAVE HALF_DAY_LEAVE LATE_ARRIVAL EARLY_EXIT WORK_FROM_HOME SICK_LEAVE EMERGENCY_LEAVE"`
	Date               string  `json:"date" validate:"required"`
	ScheduledTimeEpoch int64   `json:"scheduled_time_epoch,omitempty"`
	ActualTimeEpoch    int64   `json:"actual_time_epoch,omitempty"`
	CompensationDate   *string `json:"compensation_date,omitempty"`
}

func toExceptionDTO(e scoring.WorkException) ExceptionDTO {
	dto := ExceptionDTO{
		ID:                 e.ID,
		UserID:             string(e.UserID),
		Type:               string(e.Type),
		Date:               e.Date.Format("2006-01-02"),
		ScheduledTimeEpoch: e.ScheduledTimeEpoch,
		ActualTimeEpoch:    e.ActualTimeEpoch,
		CreatedAt:          e.CreatedAt.Format(time.RFC3339),
	}
	if e.CompensationDate != nil {
		s := e.CompensationDate.Format("2006-01-02")
		dto.CompensationDate = &s
	}
	return dto
}

// =============================================================================
// TASKS / INCIDENTS
// =============================================================================

type SaveTaskRequest struct {
	UserID      string   `json:"user_id" validate:"required"`
	Score       *float64 `json:"score,omitempty" validate:"omitempty,gte=0,lte=200"`
	CompletedAt string   `json:"completed_at" validate:"required"`
}

type SaveIncidentRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	Severity   string `json:"severity" validate:"required,oneof=low medium high critical"`
	OccurredAt string `json:"occurred_at" validate:"required"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error string `json:"error"`
}
