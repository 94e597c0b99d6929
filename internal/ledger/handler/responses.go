package handler

import (
	"provenant/internal/ledger/integrity"
	"provenant/internal/ledger/models"
)

type HistoryResponse struct {
	Events []models.Event `json:"events"`
}

type StatesResponse struct {
	States []models.ProjectedState `json:"states"`
}

type ConflictsResponse struct {
	Conflicts []models.ConflictRecord `json:"conflicts"`
}

type ChainResponse struct {
	Valid   bool                         `json:"valid"`
	Results []integrity.ChainCheckResult `json:"results"`
}

type VerifyResponse struct {
	SequenceID int64 `json:"sequence_id"`
	Valid      bool  `json:"valid"`
}

type ResolveResponse struct {
	Conflict *models.ConflictRecord `json:"conflict"`
	Event    *models.Event          `json:"event,omitempty"`
}
