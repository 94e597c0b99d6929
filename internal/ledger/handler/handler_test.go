package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"provenant/internal/ledger/handler/mocks"
	"provenant/internal/ledger/integrity"
	"provenant/internal/ledger/models"
	"provenant/internal/platform/middleware"
	"provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/httputil"
	"provenant/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	actor   domain.Actor
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.actor = domain.Actor{ID: "subject-1", Role: domain.RoleSubject, SessionID: "sess-1"}

	s.router = chi.NewRouter()
	s.router.Use(middleware.RequestID, middleware.ClientMetadata)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(r.Context(), s.actor)))
		})
	})
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	req.Header.Set(middleware.DeviceIDHeader, "device-7")
	req.Header.Set(middleware.AppVersionHeader, "3.2.1")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) errorBody(rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	var body httputil.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) TestAppend() {
	recordID := uuid.New()
	body := `{"subject_id":"subject-1","partition_id":"site-a","action":"update",` +
		`"payload":{"kind":"note","version":"1.0","data":{"text":"better"}},` +
		`"client_time":"2026-03-01T10:00:00Z","parent_sequence_id":4,"reason":"typo"}`

	s.Run("attributes the candidate to the actor and request", func() {
		s.service.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, c models.Candidate) (*models.Event, error) {
				s.Equal(recordID, c.RecordID)
				s.Equal(models.Operation{Action: models.ActionUpdate, Origin: domain.RoleSubject}, c.Operation)
				s.Equal("subject-1", c.ActorID)
				s.Equal(domain.RoleSubject, c.ActorRole)
				s.Require().NotNil(c.ParentSequenceID)
				s.Equal(int64(4), *c.ParentSequenceID)
				s.Equal("device-7", c.Provenance.DeviceID)
				s.Equal("203.0.113.9", c.Provenance.IPAddress)
				s.Equal("sess-1", c.Provenance.SessionID)
				s.Equal("3.2.1", c.Provenance.AppVersion)
				s.Contains(c.Provenance.Device, "Safari")
				return &models.Event{SequenceID: 5, RecordID: c.RecordID}, nil
			})
		rec := s.do(http.MethodPost, "/v1/records/"+recordID.String()+"/events", body)
		s.Equal(http.StatusCreated, rec.Code)
		var got models.Event
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
		s.Equal(int64(5), got.SequenceID)
	})

	s.Run("conflict carries its details", func() {
		conflictID := uuid.New()
		s.service.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil,
			&models.ConflictError{RecordID: recordID, ConflictID: conflictID, ParentSequenceID: 4, HeadSequenceID: 6})
		rec := s.do(http.MethodPost, "/v1/records/"+recordID.String()+"/events", body)
		s.Equal(http.StatusConflict, rec.Code)
		got := s.errorBody(rec)
		s.Equal(string(dErrors.CodeConflict), got.Error)
		s.Equal(conflictID.String(), got.Details["conflict_id"])
	})

	s.Run("typed errors map to statuses", func() {
		cases := []struct {
			err    error
			status int
		}{
			{&models.ValidationError{Field: "payload", Reason: "bad"}, http.StatusBadRequest},
			{&models.ReasonRequiredError{RecordID: recordID}, http.StatusBadRequest},
			{&models.EnrollmentError{RecordID: recordID}, http.StatusForbidden},
			{&models.InvalidLineageError{RecordID: recordID, ParentSequenceID: 9}, http.StatusUnprocessableEntity},
			{errors.New("database exploded"), http.StatusInternalServerError},
		}
		for _, tc := range cases {
			s.service.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil, tc.err)
			rec := s.do(http.MethodPost, "/v1/records/"+recordID.String()+"/events", body)
			s.Equal(tc.status, rec.Code, tc.err.Error())
		}
	})

	s.Run("internal errors do not leak", func() {
		s.service.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil, errors.New("password=hunter2"))
		rec := s.do(http.MethodPost, "/v1/records/"+recordID.String()+"/events", body)
		s.NotContains(rec.Body.String(), "hunter2")
	})

	s.Run("malformed body", func() {
		rec := s.do(http.MethodPost, "/v1/records/"+recordID.String()+"/events", "{")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("malformed record id", func() {
		rec := s.do(http.MethodPost, "/v1/records/not-a-uuid/events", body)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestReads() {
	recordID := uuid.New()

	s.Run("state", func() {
		s.service.EXPECT().GetState(gomock.Any(), recordID).Return(&models.ProjectedState{RecordID: recordID, Version: 3}, nil)
		rec := s.do(http.MethodGet, "/v1/records/"+recordID.String(), "")
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("missing state", func() {
		s.service.EXPECT().GetState(gomock.Any(), recordID).Return(nil, dErrors.New(dErrors.CodeNotFound, "record not found"))
		rec := s.do(http.MethodGet, "/v1/records/"+recordID.String(), "")
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("empty history is an empty list", func() {
		s.service.EXPECT().History(gomock.Any(), recordID).Return(nil, nil)
		rec := s.do(http.MethodGet, "/v1/records/"+recordID.String()+"/events", "")
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"events":[]}`, rec.Body.String())
	})

	s.Run("event by sequence", func() {
		s.service.EXPECT().EventBySequence(gomock.Any(), int64(12)).Return(&models.Event{SequenceID: 12}, nil)
		rec := s.do(http.MethodGet, "/v1/events/12", "")
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("invalid sequence", func() {
		rec := s.do(http.MethodGet, "/v1/events/0", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("verify event", func() {
		s.service.EXPECT().VerifyEvent(gomock.Any(), int64(3)).Return(false, nil)
		rec := s.do(http.MethodGet, "/v1/events/3/verify", "")
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"sequence_id":3,"valid":false}`, rec.Body.String())
	})

	s.Run("chain", func() {
		s.service.EXPECT().ValidateChain(gomock.Any(), recordID).Return([]integrity.ChainCheckResult{
			{SequenceID: 1, DigestValid: true, ChainValid: true, Valid: true},
			{SequenceID: 2, DigestValid: false, ChainValid: false, Valid: false},
		}, nil)
		rec := s.do(http.MethodGet, "/v1/records/"+recordID.String()+"/chain", "")
		s.Equal(http.StatusOK, rec.Code)
		var got ChainResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
		s.False(got.Valid)
		s.Len(got.Results, 2)
	})

	s.Run("open conflicts", func() {
		s.service.EXPECT().ListConflicts(gomock.Any(), recordID, true).Return(nil, nil)
		rec := s.do(http.MethodGet, "/v1/records/"+recordID.String()+"/conflicts?open=true", "")
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"conflicts":[]}`, rec.Body.String())
	})

	s.Run("bad open flag", func() {
		rec := s.do(http.MethodGet, "/v1/records/"+recordID.String()+"/conflicts?open=maybe", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestListStatesIsForElevatedRoles() {
	rec := s.do(http.MethodGet, "/v1/records/?partition_id=site-a", "")
	s.Equal(http.StatusForbidden, rec.Code)

	s.actor = domain.Actor{ID: "reviewer-1", Role: domain.RoleReviewer}
	s.service.EXPECT().ListStates(gomock.Any(), "site-a").Return([]models.ProjectedState{{RecordID: uuid.New()}}, nil)
	rec = s.do(http.MethodGet, "/v1/records/?partition_id=site-a", "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestResolve() {
	conflictID := uuid.New()
	body := `{"strategy":"merge","resolved_payload":{"kind":"note","version":"1.0","data":{"text":"merged"}},"reason":"merged both"}`

	s.Run("subjects cannot resolve", func() {
		rec := s.do(http.MethodPost, "/v1/conflicts/"+conflictID.String()+"/resolve", body)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("reviewer resolves", func() {
		s.actor = domain.Actor{ID: "reviewer-1", Role: domain.RoleReviewer, SessionID: "sess-r"}
		s.service.EXPECT().ResolveConflict(gomock.Any(), conflictID, gomock.Any()).DoAndReturn(
			func(_ any, _ uuid.UUID, req models.ResolveRequest) (*models.ConflictRecord, *models.Event, error) {
				s.Equal(models.StrategyMerge, req.Strategy)
				s.Require().NotNil(req.ResolvedPayload)
				s.Equal("sess-r", req.Provenance.SessionID)
				return &models.ConflictRecord{ID: conflictID, Resolved: true}, &models.Event{SequenceID: 8}, nil
			})
		rec := s.do(http.MethodPost, "/v1/conflicts/"+conflictID.String()+"/resolve", body)
		s.Equal(http.StatusOK, rec.Code)
		var got ResolveResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
		s.True(got.Conflict.Resolved)
		s.Equal(int64(8), got.Event.SequenceID)
	})

	s.Run("already resolved", func() {
		s.service.EXPECT().ResolveConflict(gomock.Any(), conflictID, gomock.Any()).
			Return(nil, nil, dErrors.New(dErrors.CodeInvariantViolation, "conflict is already resolved"))
		rec := s.do(http.MethodPost, "/v1/conflicts/"+conflictID.String()+"/resolve", body)
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
	})
}
