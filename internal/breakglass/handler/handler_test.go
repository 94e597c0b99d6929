package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"provenant/internal/breakglass/handler/mocks"
	"provenant/internal/breakglass/models"
	"provenant/internal/platform/middleware"
	dErrors "provenant/pkg/domain-errors"
)

const adminToken = "approval-workflow-token"

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	s.Require().NoError(err)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)), string(hash)).Register(s.router)
}

func (s *HandlerSuite) do(method, path, body string, withToken bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if withToken {
		req.Header.Set(middleware.AdminTokenHeader, adminToken)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestRequiresAdminToken() {
	rec := s.do(http.MethodGet, "/v1/breakglass/authorizations/active", "", false)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestRegister() {
	granted := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	body := `{"admin_id":"admin-1","ticket_id":"INC-1","justification":"sponsor escalation for site data lock",` +
		`"granted_at":"2026-07-01T09:00:00Z","expires_at":"2026-07-01T13:00:00Z"}`

	s.Run("created", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, req models.RegisterRequest) (*models.Authorization, error) {
				s.Equal("admin-1", req.AdminID)
				s.Equal(granted, req.GrantedAt)
				return &models.Authorization{ID: uuid.New(), AdminID: req.AdminID, GrantedAt: req.GrantedAt, ExpiresAt: req.ExpiresAt}, nil
			})
		rec := s.do(http.MethodPost, "/v1/breakglass/authorizations/", body, true)
		s.Equal(http.StatusCreated, rec.Code)
		var got models.Authorization
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
		s.Equal("admin-1", got.AdminID)
	})

	s.Run("validation errors map to 400", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeValidation, "justification is too short"))
		rec := s.do(http.MethodPost, "/v1/breakglass/authorizations/", body, true)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "justification is too short")
	})

	s.Run("malformed body", func() {
		rec := s.do(http.MethodPost, "/v1/breakglass/authorizations/", "{", true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestRevoke() {
	id := uuid.New()

	s.Run("revoked", func() {
		s.service.EXPECT().Revoke(gomock.Any(), id, "security-1", "closed").Return(&models.Authorization{ID: id}, nil)
		rec := s.do(http.MethodPost, "/v1/breakglass/authorizations/"+id.String()+"/revoke", `{"revoked_by":"security-1","reason":"closed"}`, true)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("already inert", func() {
		s.service.EXPECT().Revoke(gomock.Any(), id, "security-1", "again").Return(nil, dErrors.New(dErrors.CodeInvariantViolation, "authorization is already revoked"))
		rec := s.do(http.MethodPost, "/v1/breakglass/authorizations/"+id.String()+"/revoke", `{"revoked_by":"security-1","reason":"again"}`, true)
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
	})

	s.Run("bad id", func() {
		rec := s.do(http.MethodPost, "/v1/breakglass/authorizations/nope/revoke", `{}`, true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestReads() {
	id := uuid.New()

	s.service.EXPECT().ListActive(gomock.Any()).Return([]models.Authorization{{ID: id}}, nil)
	rec := s.do(http.MethodGet, "/v1/breakglass/authorizations/active", "", true)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), id.String())

	s.service.EXPECT().Get(gomock.Any(), id).Return(nil, dErrors.New(dErrors.CodeNotFound, "authorization not found"))
	rec = s.do(http.MethodGet, "/v1/breakglass/authorizations/"+id.String(), "", true)
	s.Equal(http.StatusNotFound, rec.Code)

	s.service.EXPECT().ListAccessLog(gomock.Any(), id).Return(nil, nil)
	rec = s.do(http.MethodGet, "/v1/breakglass/authorizations/"+id.String()+"/access-log", "", true)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"entries":[]}`, rec.Body.String())
}
