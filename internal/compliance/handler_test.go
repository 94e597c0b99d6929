package compliance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provenant/pkg/domain"
	"provenant/pkg/requestcontext"
)

type runnerFunc func(ctx context.Context) (*Report, error)

func (f runnerFunc) Run(ctx context.Context) (*Report, error) { return f(ctx) }

func serveReport(t *testing.T, role domain.Role, runner Runner, query string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			actor := domain.Actor{ID: "actor-1", Role: role, SessionID: "sess-1"}
			next.ServeHTTP(w, req.WithContext(requestcontext.WithActor(req.Context(), actor)))
		})
	})
	NewHandler(runner, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/compliance/report"+query, nil))
	return rec
}

func TestHandleReport(t *testing.T) {
	ok := runnerFunc(func(context.Context) (*Report, error) { return fixtureReport(), nil })

	t.Run("json by default", func(t *testing.T) {
		rec := serveReport(t, domain.RoleReviewer, ok, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), `"status": "fail"`)
	})
	t.Run("csv export", func(t *testing.T) {
		rec := serveReport(t, domain.RoleAdmin, ok, "?format=csv")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "compliance-report.csv")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "generated_at,check_name"))
	})
	t.Run("unknown format", func(t *testing.T) {
		rec := serveReport(t, domain.RoleReviewer, ok, "?format=xml")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("subjects are refused", func(t *testing.T) {
		rec := serveReport(t, domain.RoleSubject, ok, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
	t.Run("run failure", func(t *testing.T) {
		failing := runnerFunc(func(context.Context) (*Report, error) { return nil, errors.New("db down") })
		rec := serveReport(t, domain.RoleReviewer, failing, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
