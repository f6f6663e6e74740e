package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/logger"
)

const defaultCandidateLimit = 50

// ReportStore reads persisted scan output.
type ReportStore interface {
	GetSummary(ctx context.Context, runDate string) (*contracts.ScanSummary, error)
	GetLatestSummary(ctx context.Context) (*contracts.ScanSummary, error)
	GetCandidates(ctx context.Context, runDate string, limit int) ([]contracts.Candidate, error)
}

// ScanHandler serves scan summaries and candidates.
type ScanHandler struct {
	store  ReportStore
	logger *logger.Logger
}

// NewScanHandler creates the scan handler.
func NewScanHandler(store ReportStore, log *logger.Logger) *ScanHandler {
	return &ScanHandler{store: store, logger: log}
}

// GetSummary returns the summary for ?date=YYYY-MM-DD, or the latest one.
func (h *ScanHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	var summary *contracts.ScanSummary
	var err error

	if date := r.URL.Query().Get("date"); date != "" {
		summary, err = h.store.GetSummary(r.Context(), date)
	} else {
		summary, err = h.store.GetLatestSummary(r.Context())
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load scan summary")
		writeError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "no scan summary found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary":            summary,
		"fetch_coverage":     summary.FetchCoverage(),
		"indicator_coverage": summary.IndicatorCoverage(),
	})
}

// GetCandidates returns candidates for ?date=YYYY-MM-DD (required), best
// score first, capped by ?limit.
func (h *ScanHandler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required")
		return
	}

	limit := defaultCandidateLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	candidates, err := h.store.GetCandidates(r.Context(), date, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load candidates")
		writeError(w, http.StatusInternalServerError, "failed to load candidates")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":       date,
		"count":      len(candidates),
		"candidates": candidates,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
