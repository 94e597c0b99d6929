package compliance

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"provenant/internal/platform/middleware"
	"provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/httputil"
	"provenant/pkg/requestcontext"
)

// Runner produces a fresh report.
type Runner interface {
	Run(ctx context.Context) (*Report, error)
}

type Handler struct {
	runner Runner
	logger *slog.Logger
}

func NewHandler(runner Runner, logger *slog.Logger) *Handler {
	return &Handler{runner: runner, logger: logger}
}

// Register mounts the report route for reviewers and admins.
func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RequireRole(domain.RoleReviewer, domain.RoleAdmin)).
		Get("/v1/compliance/report", h.handleReport)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return
	}
	report, err := h.runner.Run(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "compliance run failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := Write(&buf, report, format); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render report"))
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if format == FormatCSV {
		w.Header().Set("Content-Disposition", `attachment; filename="compliance-report.csv"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
