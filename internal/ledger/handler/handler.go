// Package handler exposes the ledger over HTTP. Routes expect the identity
// middleware to have put the actor into the request context.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"provenant/internal/ledger/integrity"
	"provenant/internal/ledger/models"
	"provenant/internal/platform/middleware"
	"provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/httputil"
	"provenant/pkg/requestcontext"
)

// Service defines the ledger operations exposed over HTTP.
type Service interface {
	Append(ctx context.Context, c models.Candidate) (*models.Event, error)
	GetState(ctx context.Context, recordID uuid.UUID) (*models.ProjectedState, error)
	History(ctx context.Context, recordID uuid.UUID) ([]models.Event, error)
	EventBySequence(ctx context.Context, seq int64) (*models.Event, error)
	ListStates(ctx context.Context, partitionID string) ([]models.ProjectedState, error)
	ValidateChain(ctx context.Context, recordID uuid.UUID) ([]integrity.ChainCheckResult, error)
	VerifyEvent(ctx context.Context, seq int64) (bool, error)
	ListConflicts(ctx context.Context, recordID uuid.UUID, onlyOpen bool) ([]models.ConflictRecord, error)
	GetConflict(ctx context.Context, id uuid.UUID) (*models.ConflictRecord, error)
	ResolveConflict(ctx context.Context, id uuid.UUID, req models.ResolveRequest) (*models.ConflictRecord, *models.Event, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the ledger routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/records", func(r chi.Router) {
		r.With(middleware.RequireRole(domain.RoleReviewer, domain.RoleAdmin)).Get("/", h.handleListStates)
		r.Get("/{recordID}", h.handleGetState)
		r.Post("/{recordID}/events", h.handleAppend)
		r.Get("/{recordID}/events", h.handleHistory)
		r.Get("/{recordID}/chain", h.handleValidateChain)
		r.Get("/{recordID}/conflicts", h.handleListConflicts)
	})
	r.Route("/v1/events", func(r chi.Router) {
		r.Get("/{sequenceID}", h.handleEvent)
		r.Get("/{sequenceID}/verify", h.handleVerifyEvent)
	})
	r.Route("/v1/conflicts", func(r chi.Router) {
		r.Get("/{conflictID}", h.handleGetConflict)
		r.With(middleware.RequireRole(domain.RoleReviewer, domain.RoleAdmin)).Post("/{conflictID}/resolve", h.handleResolve)
	})
}

func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, ok := h.uuidParam(w, r, "recordID")
	if !ok {
		return
	}
	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid append request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	e, err := h.service.Append(ctx, req.ToCandidate(ctx, recordID))
	if err != nil {
		h.fail(ctx, w, "failed to append event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	recordID, ok := h.uuidParam(w, r, "recordID")
	if !ok {
		return
	}
	state, err := h.service.GetState(r.Context(), recordID)
	if err != nil {
		h.fail(r.Context(), w, "failed to load record state", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	recordID, ok := h.uuidParam(w, r, "recordID")
	if !ok {
		return
	}
	events, err := h.service.History(r.Context(), recordID)
	if err != nil {
		h.fail(r.Context(), w, "failed to load record history", err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Events: events})
}

func (h *Handler) handleListStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.service.ListStates(r.Context(), r.URL.Query().Get("partition_id"))
	if err != nil {
		h.fail(r.Context(), w, "failed to list records", err)
		return
	}
	if states == nil {
		states = []models.ProjectedState{}
	}
	httputil.WriteJSON(w, http.StatusOK, StatesResponse{States: states})
}

func (h *Handler) handleValidateChain(w http.ResponseWriter, r *http.Request) {
	recordID, ok := h.uuidParam(w, r, "recordID")
	if !ok {
		return
	}
	results, err := h.service.ValidateChain(r.Context(), recordID)
	if err != nil {
		h.fail(r.Context(), w, "failed to validate chain", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ChainResponse{Valid: integrity.AllValid(results), Results: results})
}

func (h *Handler) handleListConflicts(w http.ResponseWriter, r *http.Request) {
	recordID, ok := h.uuidParam(w, r, "recordID")
	if !ok {
		return
	}
	onlyOpen := false
	if v := r.URL.Query().Get("open"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "open must be a boolean"))
			return
		}
		onlyOpen = parsed
	}
	conflicts, err := h.service.ListConflicts(r.Context(), recordID, onlyOpen)
	if err != nil {
		h.fail(r.Context(), w, "failed to list conflicts", err)
		return
	}
	if conflicts == nil {
		conflicts = []models.ConflictRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, ConflictsResponse{Conflicts: conflicts})
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	seq, ok := h.sequenceParam(w, r)
	if !ok {
		return
	}
	e, err := h.service.EventBySequence(r.Context(), seq)
	if err != nil {
		h.fail(r.Context(), w, "failed to load event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) handleVerifyEvent(w http.ResponseWriter, r *http.Request) {
	seq, ok := h.sequenceParam(w, r)
	if !ok {
		return
	}
	valid, err := h.service.VerifyEvent(r.Context(), seq)
	if err != nil {
		h.fail(r.Context(), w, "failed to verify event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{SequenceID: seq, Valid: valid})
}

func (h *Handler) handleGetConflict(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uuidParam(w, r, "conflictID")
	if !ok {
		return
	}
	c, err := h.service.GetConflict(r.Context(), id)
	if err != nil {
		h.fail(r.Context(), w, "failed to load conflict", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.uuidParam(w, r, "conflictID")
	if !ok {
		return
	}
	var req ResolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	c, e, err := h.service.ResolveConflict(ctx, id, req.ToModel(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to resolve conflict", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ResolveResponse{Conflict: c, Event: e})
}

func (h *Handler) uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) sequenceParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	seq, err := strconv.ParseInt(chi.URLParam(r, "sequenceID"), 10, 64)
	if err != nil || seq < 1 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid sequence id"))
		return 0, false
	}
	return seq, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
