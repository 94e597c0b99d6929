package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"provenant/internal/breakglass/models"
	"provenant/internal/platform/middleware"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/httputil"
	"provenant/pkg/requestcontext"
)

// Service defines the break-glass operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.Authorization, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Authorization, error)
	Revoke(ctx context.Context, id uuid.UUID, by, reason string) (*models.Authorization, error)
	ListActive(ctx context.Context) ([]models.Authorization, error)
	ListAccessLog(ctx context.Context, authorizationID uuid.UUID) ([]models.AccessLogEntry, error)
}

// Handler serves the grant collaborator API. Every route requires the
// approval workflow's admin token.
type Handler struct {
	service   Service
	logger    *slog.Logger
	tokenHash string
}

func New(service Service, logger *slog.Logger, adminTokenHash string) *Handler {
	return &Handler{service: service, logger: logger, tokenHash: adminTokenHash}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/breakglass/authorizations", func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(h.tokenHash, h.logger))
		r.Post("/", h.handleRegister)
		r.Get("/active", h.handleListActive)
		r.Get("/{authorizationID}", h.handleGet)
		r.Post("/{authorizationID}/revoke", h.handleRevoke)
		r.Get("/{authorizationID}/access-log", h.handleAccessLog)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid register authorization request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	a, err := h.service.Register(ctx, req)
	if err != nil {
		h.fail(ctx, w, "failed to register authorization", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorizationID(w, r)
	if !ok {
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(r.Context(), w, "failed to load authorization", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.authorizationID(w, r)
	if !ok {
		return
	}
	var req models.RevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	a, err := h.service.Revoke(ctx, id, req.RevokedBy, req.Reason)
	if err != nil {
		h.fail(ctx, w, "failed to revoke authorization", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListActive(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "failed to list authorizations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"authorizations": list})
}

func (h *Handler) handleAccessLog(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorizationID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.ListAccessLog(r.Context(), id)
	if err != nil {
		h.fail(r.Context(), w, "failed to list access log", err)
		return
	}
	if entries == nil {
		entries = []models.AccessLogEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) authorizationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "authorizationID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid authorization id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
