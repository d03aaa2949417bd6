package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/equitylens/internal/brain"
	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/internal/data/repos"
	"github.com/wonny/equitylens/pkg/logger"
)

// Analyzer runs analyses and narrative requests
type Analyzer interface {
	Analyze(ctx context.Context, req contracts.AnalysisRequest) (*contracts.AnalysisResult, error)
	RequestNarrative(ctx context.Context, result *contracts.AnalysisResult, recordID string) *contracts.NarrativeOutcome
}

// RecordStore persists analysis records
type RecordStore interface {
	Create(ctx context.Context, rec *contracts.AnalysisRecord) error
	GetByID(ctx context.Context, id string) (*contracts.AnalysisRecord, error)
	UpdateNarrative(ctx context.Context, id, status string, n *contracts.Narrative) error
}

// AnalysisHandler handles analysis API endpoints
// ⭐ SSOT: 분석 API 핸들러는 이 구조체에서만
type AnalysisHandler struct {
	analyzer Analyzer
	records  RecordStore
	logger   *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analyzer Analyzer, records RecordStore, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		records:  records,
		logger:   log.Component("api"),
	}
}

// CreateAnalysisRequest is the POST /api/analysis body.
// Pointers keep an omitted or null selection (all) apart from [] (none).
type CreateAnalysisRequest struct {
	Symbol           string    `json:"symbol" validate:"required,max=16"`
	Fundamentals     *[]string `json:"fundamentals" validate:"omitempty,max=16,dive,required"`
	Technicals       *[]string `json:"technicals" validate:"omitempty,max=16,dive,required"`
	IncludeNarrative bool      `json:"include_narrative"`
}

// CreateAnalysisResponse is returned after a successful analysis
type CreateAnalysisResponse struct {
	ID        string                      `json:"id"`
	Symbol    string                      `json:"symbol"`
	Combined  contracts.CombinedScore     `json:"combined_analysis"`
	Narrative *contracts.NarrativeOutcome `json:"narrative,omitempty"`
}

// AnalysisRecordResponse is a stored record plus its readiness flag
type AnalysisRecordResponse struct {
	*contracts.AnalysisRecord
	NarrativeReady bool `json:"narrative_ready"`
}

func selection(s *[]string) []string {
	if s == nil {
		return nil
	}
	if *s == nil {
		return []string{}
	}
	return *s
}

// Create runs an analysis, stores it and requests its narrative
// POST /api/analysis
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateAnalysisRequest
	if errs := decodeAndValidate(r, &req); errs != nil {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid request",
			"details": errs,
		})
		return
	}

	fundamentals := selection(req.Fundamentals)
	technicals := selection(req.Technicals)

	result, err := h.analyzer.Analyze(ctx, contracts.AnalysisRequest{
		Symbol:       req.Symbol,
		Fundamentals: fundamentals,
		Technicals:   technicals,
	})
	if err != nil {
		h.respondAnalysisError(w, err, req.Symbol)
		return
	}

	rec := &contracts.AnalysisRecord{
		ID:                   uuid.NewString(),
		Symbol:               result.Symbol,
		SelectedFundamentals: fundamentals,
		SelectedTechnicals:   technicals,
		Fundamental:          result.Fundamental,
		Technical:            result.Technical,
		Combined:             result.Combined,
	}
	if req.IncludeNarrative {
		pending := contracts.NarrativePending
		rec.NarrativeStatus = &pending
	}

	if err := h.records.Create(ctx, rec); err != nil {
		h.logger.WithError(err).WithField("symbol", result.Symbol).Error("Failed to store analysis")
		respondError(w, http.StatusInternalServerError, "Failed to store analysis")
		return
	}

	resp := CreateAnalysisResponse{
		ID:       rec.ID,
		Symbol:   rec.Symbol,
		Combined: rec.Combined,
	}

	if req.IncludeNarrative {
		outcome := h.analyzer.RequestNarrative(ctx, result, rec.ID)
		// queued jobs write their own outcome; everything else is final now
		if outcome.Status != contracts.NarrativeQueued {
			if err := h.records.UpdateNarrative(ctx, rec.ID, outcome.Status, outcome.Narrative); err != nil {
				h.logger.WithError(err).WithField("id", rec.ID).Warn("Failed to store narrative outcome")
			}
		}
		resp.Narrative = outcome
	}

	respondJSON(w, http.StatusCreated, resp)
}

// Get returns a stored analysis record
// GET /api/analysis/{id}
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, "invalid analysis id")
		return
	}

	rec, err := h.records.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			respondError(w, http.StatusNotFound, "analysis not found")
			return
		}
		h.logger.WithError(err).WithField("id", id).Error("Failed to get analysis")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve analysis")
		return
	}

	respondJSON(w, http.StatusOK, AnalysisRecordResponse{
		AnalysisRecord: rec,
		NarrativeReady: rec.NarrativeReady(),
	})
}

func (h *AnalysisHandler) respondAnalysisError(w http.ResponseWriter, err error, symbol string) {
	if errors.Is(err, brain.ErrInvalidInput) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.WithError(err).WithField("symbol", symbol).Error("Analysis failed")
	respondError(w, http.StatusInternalServerError, "Analysis failed")
}
