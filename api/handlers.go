/*
handlers.go - HTTP handlers for the compensation engine

PURPOSE:
  The embedding surface of the engine. Handlers resolve billing
  cycles from query dates, route between the live and frozen read
  paths, trigger snapshot syncs, and expose the admin CRUD that feeds
  the record sources.

READ PATHS:
  GET /api/scores serves frozen snapshots when they exist for the
  resolved cycle, and live recomputation otherwise. ?force=true
  always bypasses snapshots and recomputes - the "live" tab.

ERROR MAPPING:
  validation failure -> 400
  unknown record     -> 404
  partial sync       -> 200 with per-user failures in the body
  everything else    -> 500

SEE ALSO:
  - server.go: Router wiring
  - dto.go: Request/response shapes
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/comp-engine/payroll"
	"github.com/warp/comp-engine/scoring"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	Store    payroll.Store
	Calc     *payroll.Calculator
	Sync     *payroll.Synchronizer
	Logger   *zap.Logger
	validate *validator.Validate
}

func NewHandler(store payroll.Store, calc *payroll.Calculator, sync *payroll.Synchronizer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:    store,
		Calc:     calc,
		Sync:     sync,
		Logger:   logger,
		validate: validator.New(),
	}
}

// =============================================================================
// CYCLES
// =============================================================================

// ListCycles returns selectable past cycles, newest first, bounded by
// the adoption epoch.
func (h *Handler) ListCycles(w http.ResponseWriter, r *http.Request) {
	ref, err := refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	max := 12
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("max must be a positive integer"))
			return
		}
		max = n
	}

	cycles := scoring.ResolvePastCycles(ref, max)
	dtos := make([]CycleDTO, 0, len(cycles))
	for _, c := range cycles {
		dtos = append(dtos, toCycleDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SCORES - Live vs frozen routing
// =============================================================================

// GetScores serves per-user scores for the cycle containing ?date.
// Frozen snapshots win unless none exist or ?force=true.
func (h *Handler) GetScores(w http.ResponseWriter, r *http.Request) {
	ref, err := refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cycle := scoring.ResolveCycle(ref)
	force := r.URL.Query().Get("force") == "true"

	if !force {
		snapshots, err := h.Store.ListByCycle(r.Context(), cycle.Start)
		if err != nil {
			h.internalError(w, "list snapshots", err)
			return
		}
		if len(snapshots) > 0 {
			scores := make([]ScoreDTO, 0, len(snapshots))
			for _, s := range snapshots {
				scores = append(scores, snapshotToScoreDTO(s))
			}
			writeJSON(w, http.StatusOK, ScoresResponse{Cycle: toCycleDTO(cycle), Mode: "snapshot", Scores: scores})
			return
		}
	}

	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		h.internalError(w, "list users", err)
		return
	}
	userIDs := make([]scoring.UserID, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}

	live, err := h.Calc.Live(r.Context(), cycle, userIDs)
	if err != nil {
		var serr *scoring.ScoreError
		if errors.As(err, &serr) {
			writeError(w, http.StatusUnprocessableEntity, serr)
			return
		}
		h.internalError(w, "live computation", err)
		return
	}

	scores := make([]ScoreDTO, 0, len(live))
	for _, s := range live {
		scores = append(scores, liveToScoreDTO(s))
	}
	writeJSON(w, http.StatusOK, ScoresResponse{Cycle: toCycleDTO(cycle), Mode: "live", Scores: scores})
}

// =============================================================================
// SYNC - Freeze a cycle
// =============================================================================

func (h *Handler) SyncCycle(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if !h.decode(w, r, &req) {
		return
	}
	ref, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cycle := scoring.ResolveCycle(ref)

	userIDs := make([]scoring.UserID, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		userIDs = append(userIDs, scoring.UserID(id))
	}
	if len(userIDs) == 0 {
		users, err := h.Store.ListUsers(r.Context())
		if err != nil {
			h.internalError(w, "list users", err)
			return
		}
		for _, u := range users {
			userIDs = append(userIDs, u.ID)
		}
	}

	result, err := h.Sync.Sync(r.Context(), cycle, userIDs, req.SyncedBy)
	if err != nil {
		if errors.Is(err, scoring.ErrCycleBeforeEpoch) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.internalError(w, "sync", err)
		return
	}

	resp := SyncResponse{Cycle: toCycleDTO(cycle)}
	for _, s := range result.Snapshots {
		resp.Snapshots = append(resp.Snapshots, toSnapshotDTO(s))
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, SyncFailureDTO{
			UserID: string(f.UserID),
			Step:   string(f.Step),
			Error:  f.Error(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListSnapshots returns the frozen records for the cycle containing ?date.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	ref, err := refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cycle := scoring.ResolveCycle(ref)

	snapshots, err := h.Store.ListByCycle(r.Context(), cycle.Start)
	if err != nil {
		h.internalError(w, "list snapshots", err)
		return
	}
	dtos := make([]SnapshotDTO, 0, len(snapshots))
	for _, s := range snapshots {
		dtos = append(dtos, toSnapshotDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// USERS
// =============================================================================

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		h.internalError(w, "list users", err)
		return
	}
	dtos := make([]UserDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, UserDTO{
			ID:                  string(u.ID),
			Name:                u.Name,
			Email:               u.Email,
			BaseCompensationINR: u.BaseCompensationINR.String(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveUser(w http.ResponseWriter, r *http.Request) {
	var req SaveUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	base, err := decimal.NewFromString(req.BaseCompensationINR)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("base_compensation_inr must be a decimal string"))
		return
	}

	user := payroll.User{
		ID:                  scoring.UserID(req.ID),
		Name:                req.Name,
		Email:               req.Email,
		BaseCompensationINR: base,
		CreatedAt:           time.Now().UTC(),
	}
	if err := h.Store.SaveUser(r.Context(), user); err != nil {
		h.internalError(w, "save user", err)
		return
	}
	writeJSON(w, http.StatusCreated, UserDTO{
		ID:                  req.ID,
		Name:                req.Name,
		Email:               req.Email,
		BaseCompensationINR: base.String(),
	})
}

// =============================================================================
// WORK EXCEPTIONS
// =============================================================================

func (h *Handler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	ref, err := refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cycle := scoring.ResolveCycle(ref)

	exceptions, err := h.Store.ListExceptions(r.Context(), cycle)
	if err != nil {
		h.internalError(w, "list exceptions", err)
		return
	}
	dtos := make([]ExceptionDTO, 0, len(exceptions))
	for _, e := range exceptions {
		dtos = append(dtos, toExceptionDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateException(w http.ResponseWriter, r *http.Request) {
	exc, ok := h.exceptionFromRequest(w, r, uuid.NewString())
	if !ok {
		return
	}
	if err := h.Store.SaveException(r.Context(), exc); err != nil {
		h.internalError(w, "save exception", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExceptionDTO(exc))
}

func (h *Handler) UpdateException(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.Store.GetException(r.Context(), id)
	if err != nil {
		h.internalError(w, "get exception", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, errors.New("exception not found"))
		return
	}

	exc, ok := h.exceptionFromRequest(w, r, id)
	if !ok {
		return
	}
	exc.CreatedAt = existing.CreatedAt
	if err := h.Store.SaveException(r.Context(), exc); err != nil {
		h.internalError(w, "save exception", err)
		return
	}
	writeJSON(w, http.StatusOK, toExceptionDTO(exc))
}

func (h *Handler) DeleteException(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteException(r.Context(), id); err != nil {
		h.internalError(w, "delete exception", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) exceptionFromRequest(w http.ResponseWriter, r *http.Request, id string) (scoring.WorkException, bool) {
	var req SaveExceptionRequest
	if !h.decode(w, r, &req) {
		return scoring.WorkException{}, false
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return scoring.WorkException{}, false
	}

	excType := scoring.ExceptionType(req.Type)
	if excType.IsTimeBased() && (req.ScheduledTimeEpoch == 0 || req.ActualTimeEpoch == 0) {
		writeError(w, http.StatusBadRequest, scoring.ErrMissingTimestamps)
		return scoring.WorkException{}, false
	}

	exc := scoring.WorkException{
		ID:                 id,
		UserID:             scoring.UserID(req.UserID),
		Type:               excType,
		Date:               date,
		ScheduledTimeEpoch: req.ScheduledTimeEpoch,
		ActualTimeEpoch:    req.ActualTimeEpoch,
		CreatedAt:          time.Now().UTC(),
	}
	if req.CompensationDate != nil {
		comp, err := parseDate(*req.CompensationDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return scoring.WorkException{}, false
		}
		exc.CompensationDate = &comp
	}
	return exc, true
}

// =============================================================================
// TASKS / INCIDENTS
// =============================================================================

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req SaveTaskRequest
	if !h.decode(w, r, &req) {
		return
	}
	completedAt, err := parseDate(req.CompletedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	task := scoring.TaskRecord{
		ID:          uuid.NewString(),
		UserID:      scoring.UserID(req.UserID),
		CompletedAt: completedAt,
	}
	if req.Score != nil {
		task.Score = *req.Score
		task.Rated = true
	}
	if err := h.Store.SaveTask(r.Context(), task); err != nil {
		h.internalError(w, "save task", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": task.ID})
}

func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req SaveIncidentRequest
	if !h.decode(w, r, &req) {
		return
	}
	occurredAt, err := parseDate(req.OccurredAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	incident := scoring.StabilityIncident{
		ID:         uuid.NewString(),
		UserID:     scoring.UserID(req.UserID),
		Severity:   scoring.IncidentSeverity(req.Severity),
		OccurredAt: occurredAt,
	}
	if err := h.Store.SaveIncident(r.Context(), incident); err != nil {
		h.internalError(w, "save incident", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": incident.ID})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode unmarshals and validates a request body. Writes a 400 and
// returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	h.Logger.Error("request failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, err)
}

// refDate reads ?date= (RFC3339 or YYYY-MM-DD), defaulting to now.
// The default exists only at this outermost layer; the engine itself
// always receives explicit dates.
func refDate(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return time.Now().UTC(), nil
	}
	return parseDate(v)
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", v, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("date must be RFC3339 or YYYY-MM-DD")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
