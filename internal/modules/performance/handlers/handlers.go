// Package handlers provides HTTP handlers for performance analytics.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/silverfund/sfquant/internal/modules/performance"
)

// Handler handles performance HTTP requests
type Handler struct {
	log zerolog.Logger
}

// NewHandler creates a new performance handler
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{log: log.With().Str("handler", "performance").Logger()}
}

type summaryRequest struct {
	Weights        []performance.WeightRecord `json:"weights"`
	Benchmark      []performance.WeightRecord `json:"benchmark,omitempty"`
	Returns        []performance.ReturnRecord `json:"returns"`
	TurnoverWindow int                        `json:"turnover_window,omitempty"`
}

// HandleSummary handles POST /api/performance/summary. Weights and realized
// asset returns come in the request body; the response carries annualized
// summary statistics, the per-date return series, and turnover stats when
// the series is long enough for the rolling window.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Weights) == 0 || len(req.Returns) == 0 {
		http.Error(w, "weights and returns are required", http.StatusBadRequest)
		return
	}

	window := req.TurnoverWindow
	if window < 1 {
		window = performance.TurnoverWindow
	}

	var (
		series []performance.PortfolioReturn
		multi  []performance.MultiReturn
		daily  []float64
	)
	if len(req.Benchmark) > 0 {
		multi = performance.MultiReturnsFromWeights(req.Weights, req.Benchmark, req.Returns)
		daily = make([]float64, len(multi))
		for i, m := range multi {
			daily[i] = m.Total
		}
	} else {
		series = performance.ReturnsFromWeights(req.Weights, req.Returns)
		daily = make([]float64, len(series))
		for i, p := range series {
			daily[i] = p.Return
		}
	}

	data := map[string]interface{}{
		"summary": performance.Summarize(daily),
	}
	if multi != nil {
		data["multi_returns"] = multi
	} else {
		data["returns"] = series
	}

	if stats, err := performance.SummarizeTurnover(req.Weights, window); err == nil {
		data["turnover"] = stats
	} else {
		h.log.Debug().Err(err).Msg("Turnover stats unavailable")
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"days":            len(daily),
			"turnover_window": window,
			"timestamp":       time.Now().Format(time.RFC3339),
		},
	})
}

type icsRequest struct {
	Signals []performance.SignalRecord `json:"signals"`
	Returns []performance.ReturnRecord `json:"returns"`
	Method  string                     `json:"method,omitempty"`
}

// HandleICs handles POST /api/performance/ics
func (h *Handler) HandleICs(w http.ResponseWriter, r *http.Request) {
	var req icsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Signals) == 0 || len(req.Returns) == 0 {
		http.Error(w, "signals and returns are required", http.StatusBadRequest)
		return
	}

	method := performance.ICMethod(req.Method)
	if req.Method == "" {
		method = performance.ICRank
	}

	points, err := performance.InformationCoefficients(req.Signals, req.Returns, method)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"ics":     points,
			"summary": performance.SummarizeICs(points),
		},
		"metadata": map[string]interface{}{
			"method":    string(method),
			"timestamp": time.Now().Format(time.RFC3339),
		},
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
