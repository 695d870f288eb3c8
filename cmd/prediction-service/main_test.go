package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/health-sphere/noshow-platform/pkg/common/logger"
	"github.com/health-sphere/noshow-platform/pkg/common/models"
	"github.com/health-sphere/noshow-platform/pkg/modelstore"
	"github.com/health-sphere/noshow-platform/pkg/predict"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func newTestService() *PredictionService {
	return &PredictionService{
		predictor: predict.NewService(modelstore.NewStore()),
		maxBody:   64,
		neutral:   75.0,
	}
}

func TestHandlePredictRejectsOversizedBody(t *testing.T) {
	service := newTestService()
	body := `{"patient_id":"` + strings.Repeat("P", 200) + `","features":{"age":45}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions/predict", strings.NewReader(body))
	rec := httptest.NewRecorder()

	service.handlePredict(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for body over the limit, got %d", rec.Code)
	}
}

func TestHandleRecordOutcomeRejectsOversizedBody(t *testing.T) {
	service := newTestService()
	body := `{"patient_id":"` + strings.Repeat("P", 200) + `","showed_up":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/outcomes", strings.NewReader(body))
	rec := httptest.NewRecorder()

	service.handleRecordOutcome(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for body over the limit, got %d", rec.Code)
	}
}

func TestHandlePredictNotReadyReturns503(t *testing.T) {
	service := newTestService()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions/predict",
		strings.NewReader(`{"features":{"age":45}}`))
	rec := httptest.NewRecorder()

	service.handlePredict(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with no active model, got %d", rec.Code)
	}
}

func TestHandlePredictNeutralFallback(t *testing.T) {
	service := newTestService()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions/predict?fallback=neutral",
		strings.NewReader(`{"features":{"age":45}}`))
	rec := httptest.NewRecorder()

	service.handlePredict(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with fallback=neutral, got %d", rec.Code)
	}

	var resp models.PredictionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ModelVersion != "unavailable" || resp.PredictedProbability != 0.5 {
		t.Fatalf("unexpected fallback response: %+v", resp)
	}
}
