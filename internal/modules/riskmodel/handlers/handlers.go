// Package handlers provides HTTP handlers for risk model operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/silverfund/sfquant/internal/modules/panels"
	"github.com/silverfund/sfquant/internal/modules/riskmodel"
)

// Handler handles risk model HTTP requests
type Handler struct {
	service      *riskmodel.Service
	batchWorkers int
	log          zerolog.Logger
}

// NewHandler creates a new risk model handler
func NewHandler(service *riskmodel.Service, batchWorkers int, log zerolog.Logger) *Handler {
	if batchWorkers < 1 {
		batchWorkers = 1
	}
	return &Handler{
		service:      service,
		batchWorkers: batchWorkers,
		log:          log.With().Str("handler", "riskmodel").Logger(),
	}
}

// HandleGetCovariance handles GET /api/risk/covariance?date=YYYY-MM-DD
func (h *Handler) HandleGetCovariance(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date query parameter is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Construct(r.Context(), date, nil)
	if err != nil {
		h.writeError(w, date, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"date":   result.Date,
			"assets": result.Matrix.Assets(),
			"matrix": result.Matrix.Rows(),
			"report": result.Report,
		},
		"metadata": map[string]interface{}{
			"factors":   result.Universe.Factors,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetValidation handles GET /api/risk/validate?date=YYYY-MM-DD
func (h *Handler) HandleGetValidation(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date query parameter is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Construct(r.Context(), date, nil)
	if err != nil {
		h.writeError(w, date, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result.Report,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

type batchRequest struct {
	Dates   []string `json:"dates"`
	Workers int      `json:"workers"`
}

// HandleBatchCovariance handles POST /api/risk/covariance/batch
func (h *Handler) HandleBatchCovariance(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Dates) == 0 {
		http.Error(w, "dates is required", http.StatusBadRequest)
		return
	}

	workers := req.Workers
	if workers < 1 {
		workers = h.batchWorkers
	}

	items := h.service.ConstructBatch(r.Context(), req.Dates, workers)

	type batchItemResponse struct {
		Date   string                      `json:"date"`
		Assets []string                    `json:"assets,omitempty"`
		Report *riskmodel.ValidationReport `json:"report,omitempty"`
		Error  string                      `json:"error,omitempty"`
	}

	out := make([]batchItemResponse, len(items))
	for i, item := range items {
		resp := batchItemResponse{Date: item.Date}
		if item.Err != nil {
			resp.Error = item.Err.Error()
		} else {
			resp.Assets = item.Result.Matrix.Assets()
			resp.Report = item.Result.Report
		}
		out[i] = resp
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": out,
		"metadata": map[string]interface{}{
			"requested": len(req.Dates),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

type portfolioRiskRequest struct {
	Date    string             `json:"date"`
	Weights map[string]float64 `json:"weights"`
}

// HandlePortfolioRisk handles POST /api/risk/portfolio/variance
func (h *Handler) HandlePortfolioRisk(w http.ResponseWriter, r *http.Request) {
	var req portfolioRiskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Date == "" || len(req.Weights) == 0 {
		http.Error(w, "date and weights are required", http.StatusBadRequest)
		return
	}

	decomposition, err := h.service.PortfolioRisk(r.Context(), req.Date, req.Weights)
	if err != nil {
		h.writeError(w, req.Date, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": decomposition,
		"metadata": map[string]interface{}{
			"date":      req.Date,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeError maps the engine's error taxonomy onto HTTP statuses. Input-panel
// problems and reconciliation failures are the caller's data problem;
// contract violations are ours.
func (h *Handler) writeError(w http.ResponseWriter, date string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, panels.ErrDataUnavailable):
		status = http.StatusNotFound
	case errors.Is(err, panels.ErrSchemaMismatch),
		errors.Is(err, riskmodel.ErrEmptyUniverse),
		errors.Is(err, riskmodel.ErrAsymmetricFactorCovariance),
		errors.Is(err, riskmodel.ErrNonFiniteEntry),
		errors.Is(err, riskmodel.ErrAsymmetryExceeded),
		errors.Is(err, riskmodel.ErrUnrepairablePSD):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("date", date).Msg("Risk model request failed")
	} else {
		h.log.Warn().Err(err).Str("date", date).Msg("Risk model request rejected")
	}

	h.writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"date":  date,
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
