package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/logger"
)

type fakeStore struct {
	summary    *contracts.ScanSummary
	candidates []contracts.Candidate
	err        error
}

func (f *fakeStore) GetSummary(_ context.Context, _ string) (*contracts.ScanSummary, error) {
	return f.summary, f.err
}

func (f *fakeStore) GetLatestSummary(_ context.Context) (*contracts.ScanSummary, error) {
	return f.summary, f.err
}

func (f *fakeStore) GetCandidates(_ context.Context, _ string, limit int) ([]contracts.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.candidates) {
		return f.candidates[:limit], nil
	}
	return f.candidates, nil
}

func sampleSummary() *contracts.ScanSummary {
	return &contracts.ScanSummary{
		RunDate:        time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Total:          100,
		FetchOK:        90,
		IndicatorReady: 85,
		Candidates:     4,
		ByFailure:      map[contracts.ScanFailureReason]int{contracts.FailureTimeout: 10},
		ByInsufficient: map[contracts.DataInsufficientReason]int{},
		ByCause:        map[contracts.CauseCode]int{contracts.CauseFilterRejected: 81},
	}
}

func TestGetSummaryLatest(t *testing.T) {
	h := NewScanHandler(&fakeStore{summary: sampleSummary()}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/scan/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		FetchCoverage     float64              `json:"fetch_coverage"`
		IndicatorCoverage float64              `json:"indicator_coverage"`
		Summary           contracts.ScanSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 0.9, body.FetchCoverage, 1e-9)
	assert.InDelta(t, 0.85, body.IndicatorCoverage, 1e-9)
	assert.Equal(t, 100, body.Summary.Total)
}

func TestGetSummaryNotFound(t *testing.T) {
	h := NewScanHandler(&fakeStore{}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/scan/summary?date=2026-01-01", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSummaryStoreError(t *testing.T) {
	h := NewScanHandler(&fakeStore{err: errors.New("db down")}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/scan/summary", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetCandidatesRequiresDate(t *testing.T) {
	h := NewScanHandler(&fakeStore{}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetCandidates(rec, httptest.NewRequest(http.MethodGet, "/api/scan/candidates", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCandidatesLimit(t *testing.T) {
	store := &fakeStore{candidates: []contracts.Candidate{
		{Ticker: "AAA"}, {Ticker: "BBB"}, {Ticker: "CCC"},
	}}
	h := NewScanHandler(store, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetCandidates(rec, httptest.NewRequest(http.MethodGet, "/api/scan/candidates?date=2026-08-28&limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count      int                   `json:"count"`
		Candidates []contracts.Candidate `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "AAA", body.Candidates[0].Ticker)
}

func TestGetCandidatesBadLimit(t *testing.T) {
	h := NewScanHandler(&fakeStore{}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetCandidates(rec, httptest.NewRequest(http.MethodGet, "/api/scan/candidates?date=2026-08-28&limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
