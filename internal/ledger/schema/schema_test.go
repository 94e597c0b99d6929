package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"provenant/internal/ledger/models"
)

type SchemaSuite struct {
	suite.Suite
	registry *Registry
}

func TestSchemaSuite(t *testing.T) {
	suite.Run(t, new(SchemaSuite))
}

func (s *SchemaSuite) SetupTest() {
	s.registry = Default()
}

func payload(kind, version, data string) models.Payload {
	return models.Payload{Kind: kind, Version: version, Data: json.RawMessage(data)}
}

func (s *SchemaSuite) requireField(err error, field string) {
	s.T().Helper()
	var verr *models.ValidationError
	s.Require().True(errors.As(err, &verr), "expected ValidationError, got %v", err)
	s.Equal(field, verr.Field)
}

func (s *SchemaSuite) TestTagDispatch() {
	s.Run("known kind validates", func() {
		s.NoError(s.registry.Validate(payload("note", "1.0", `{"text":"a"}`)))
	})

	s.Run("minor versions share a validator", func() {
		s.NoError(s.registry.Validate(payload("note", "1.7", `{"text":"a"}`)))
	})

	s.Run("unknown kind fails closed", func() {
		err := s.registry.Validate(payload("vitals", "1.0", `{}`))
		s.requireField(err, "payload.kind")
	})

	s.Run("unknown major fails closed", func() {
		err := s.registry.Validate(payload("note", "2.0", `{"text":"a"}`))
		s.requireField(err, "payload.kind")
	})

	s.Run("malformed version tags are rejected", func() {
		for _, v := range []string{"1", "v1.0", "1.0.0", "one.zero", ""} {
			err := s.registry.Validate(payload("note", v, `{"text":"a"}`))
			s.requireField(err, "payload.version")
		}
	})

	s.Run("kind outside the tag alphabet is rejected", func() {
		err := s.registry.Validate(payload("Note", "1.0", `{"text":"a"}`))
		s.requireField(err, "payload.version")
	})

	s.Run("data must be an object", func() {
		s.requireField(s.registry.Validate(payload("note", "1.0", `["a"]`)), "payload.data")
		s.requireField(s.registry.Validate(payload("note", "1.0", ``)), "payload.data")
		s.requireField(s.registry.Validate(payload("note", "1.0", `null`)), "payload.data")
	})

	s.Run("registered kinds are listed", func() {
		s.Contains(s.registry.Kinds(), "medication-v2")
		s.Contains(s.registry.Kinds(), "note-v1")
	})
}

func (s *SchemaSuite) TestNote() {
	s.requireField(s.registry.Validate(payload("note", "1.0", `{}`)), "payload.data.text")
	s.requireField(s.registry.Validate(payload("note", "1.0", `{"text":"   "}`)), "payload.data.text")
	s.requireField(s.registry.Validate(payload("note", "1.0", `{"text":42}`)), "payload.data.text")
}

func (s *SchemaSuite) TestSymptomDiary() {
	s.Run("symptoms with severity", func() {
		s.NoError(s.registry.Validate(payload("symptom_diary", "1.0",
			`{"date":"2026-02-01","symptoms":["cough","fever"],"severity":"mild"}`)))
	})

	s.Run("no symptoms day", func() {
		s.NoError(s.registry.Validate(payload("symptom_diary", "1.0",
			`{"date":"2026-02-01","no_symptoms":true}`)))
	})

	s.Run("exclusive flags", func() {
		err := s.registry.Validate(payload("symptom_diary", "1.0",
			`{"date":"2026-02-01","no_symptoms":true,"unable_to_recall":true}`))
		s.requireField(err, "payload.data.unable_to_recall")
	})

	s.Run("symptoms forbidden when nothing occurred", func() {
		err := s.registry.Validate(payload("symptom_diary", "1.0",
			`{"date":"2026-02-01","no_symptoms":true,"symptoms":["cough"]}`))
		s.requireField(err, "payload.data.symptoms")
	})

	s.Run("severity forbidden when day cannot be recalled", func() {
		err := s.registry.Validate(payload("symptom_diary", "1.0",
			`{"date":"2026-02-01","unable_to_recall":true,"severity":"mild"}`))
		s.requireField(err, "payload.data.severity")
	})

	s.Run("symptoms drawn from closed set", func() {
		err := s.registry.Validate(payload("symptom_diary", "1.0",
			`{"date":"2026-02-01","symptoms":["cough","3"],"severity":"mild"}`))
		s.requireField(err, "payload.data.symptoms[1]")
	})

	s.Run("numeric severity codes are rejected", func() {
		err := s.registry.Validate(payload("symptom_diary", "1.0",
			`{"date":"2026-02-01","symptoms":["cough"],"severity":2}`))
		s.requireField(err, "payload.data.severity")
	})

	s.Run("date must be a calendar date", func() {
		err := s.registry.Validate(payload("symptom_diary", "1.0", `{"date":"01/02/2026","no_symptoms":true}`))
		s.requireField(err, "payload.data.date")
	})
}

func (s *SchemaSuite) TestAdverseEvent() {
	s.Run("recovered with resolution date", func() {
		s.NoError(s.registry.Validate(payload("adverse_event", "1.0",
			`{"term":"rash","seriousness":"non_serious","outcome":"recovered","onset_date":"2026-01-01","resolution_date":"2026-01-05"}`)))
	})

	s.Run("resolution date forbidden while ongoing", func() {
		err := s.registry.Validate(payload("adverse_event", "1.0",
			`{"term":"rash","seriousness":"serious","outcome":"recovering","onset_date":"2026-01-01","resolution_date":"2026-01-05"}`))
		s.requireField(err, "payload.data.resolution_date")
	})

	s.Run("resolution before onset", func() {
		err := s.registry.Validate(payload("adverse_event", "1.0",
			`{"term":"rash","seriousness":"serious","outcome":"recovered","onset_date":"2026-01-05","resolution_date":"2026-01-01"}`))
		s.requireField(err, "payload.data.resolution_date")
	})

	s.Run("unknown outcome", func() {
		err := s.registry.Validate(payload("adverse_event", "1.0",
			`{"term":"rash","seriousness":"serious","outcome":"better","onset_date":"2026-01-05"}`))
		s.requireField(err, "payload.data.outcome")
	})
}

func (s *SchemaSuite) TestMedication() {
	s.NoError(s.registry.Validate(payload("medication", "1.2", `{"name":"paracetamol","dose":500,"unit":"mg"}`)))
	s.requireField(s.registry.Validate(payload("medication", "1.0", `{"name":"paracetamol","dose":-1,"unit":"mg"}`)), "payload.data.dose")
	s.requireField(s.registry.Validate(payload("medication", "2.0", `{"name":"paracetamol","dose":500,"unit":"mg"}`)), "payload.data.route")
	s.NoError(s.registry.Validate(payload("medication", "2.0", `{"name":"paracetamol","dose":500,"unit":"mg","route":"oral"}`)))
}
