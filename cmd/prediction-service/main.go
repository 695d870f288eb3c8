package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/health-sphere/noshow-platform/pkg/common/config"
	"github.com/health-sphere/noshow-platform/pkg/common/database"
	commonkafka "github.com/health-sphere/noshow-platform/pkg/common/kafka"
	"github.com/health-sphere/noshow-platform/pkg/common/logger"
	"github.com/health-sphere/noshow-platform/pkg/common/models"
	"github.com/health-sphere/noshow-platform/pkg/dataset"
	"github.com/health-sphere/noshow-platform/pkg/features"
	"github.com/health-sphere/noshow-platform/pkg/lifecycle"
	"github.com/health-sphere/noshow-platform/pkg/modelstore"
	"github.com/health-sphere/noshow-platform/pkg/observability/metrics"
	"github.com/health-sphere/noshow-platform/pkg/outcomes"
	"github.com/health-sphere/noshow-platform/pkg/predict"
	"github.com/health-sphere/noshow-platform/pkg/trainer"
)

type PredictionService struct {
	predictor     *predict.Service
	orchestrator  *lifecycle.Orchestrator
	outcomeRepo   *outcomes.Repository
	predictionLog *predict.Repository
	attendance    *features.AttendanceStore
	maxBody       int64
	neutral       float64
}

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	redisClient := database.GetRedis()

	outcomeRepo := outcomes.NewRepository(db)
	if err := outcomeRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate outcome tables")
	}
	predictionLog := predict.NewRepository(db)
	if err := predictionLog.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate prediction log tables")
	}

	attendance := features.NewAttendanceStore(
		redisClient, cfg.FeatureOnlinePrefix, cfg.FeatureCacheTTL, cfg.NeutralAttendanceRate)

	profile, err := trainer.LoadProfile(cfg.TrainingProfilePath)
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to load training profile; using defaults")
	}

	builder := dataset.NewBuilder(dataset.NewCSVSource(cfg.DataDir))
	store := modelstore.NewStore()
	persist, err := lifecycle.NewPersistence(cfg.ModelDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize model persistence")
	}

	producer := commonkafka.NewProducer(cfg.KafkaModelTopic)
	orchestrator := lifecycle.NewOrchestrator(
		builder, outcomeRepo, trainer.New(profile), store, persist,
		lifecycle.Options{Threshold: cfg.RetrainThreshold, Publisher: producer},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orchestrator.Bootstrap(ctx); err != nil {
		// No model yet is survivable: predictions report not-ready until the
		// first successful retrain commits.
		logger.Log.WithError(err).Error("Bootstrap failed; serving without an active model")
	}
	go orchestrator.RunWorker(ctx)

	service := &PredictionService{
		predictor:     predict.NewService(store),
		orchestrator:  orchestrator,
		outcomeRepo:   outcomeRepo,
		predictionLog: predictionLog,
		attendance:    attendance,
		maxBody:       cfg.MaxRequestBody,
		neutral:       cfg.NeutralAttendanceRate,
	}

	consumer := commonkafka.NewConsumer(cfg.KafkaOutcomeTopic, cfg.KafkaGroupID)
	go func() {
		if err := consumer.Consume(ctx, service.handleOutcomeEvent); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Error("Outcome consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", service.handleHealth).Methods("GET")
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods("GET")
	router.HandleFunc("/api/v1/predictions/predict", service.handlePredict).Methods("POST")
	router.HandleFunc("/api/v1/predictions/recent", service.handleRecentPredictions).Methods("GET")
	router.HandleFunc("/api/v1/predictions/status", service.handleStatus).Methods("GET")
	router.HandleFunc("/api/v1/outcomes", service.handleRecordOutcome).Methods("POST")
	router.HandleFunc("/api/v1/admin/retrain", service.handleRetrain).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Prediction Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Prediction Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	if err := consumer.Close(); err != nil {
		logger.Log.WithError(err).Error("Failed to close consumer")
	}
	if err := producer.Close(); err != nil {
		logger.Log.WithError(err).Error("Failed to close producer")
	}
	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Error("Failed to close database")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Error("Failed to close redis")
	}

	logger.Log.Info("Prediction Service stopped")
}

func (s *PredictionService) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.orchestrator.Status()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"model_ready": status.IsReady,
	})
}

func (s *PredictionService) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	// When the caller names a patient and omits the score, read the live
	// attendance snapshot; unknown patients fall back to the neutral default.
	// An explicit score, zero included, is used as given.
	resolved := req.Features.Resolve(s.neutral)
	if req.PatientID != "" && req.Features.AttendanceScore == nil {
		score, err := s.attendance.Get(r.Context(), req.PatientID)
		if err != nil {
			logger.Log.WithError(err).WithField("patient_id", req.PatientID).
				Warn("Attendance lookup failed; using neutral default")
		}
		resolved.AttendanceScore = score
	}

	resp, err := s.predictor.Predict(resolved)
	if err == modelstore.ErrModelNotReady {
		metrics.RecordPredictionNotReady()
		// Booking-style callers pass ?fallback=neutral to keep their flow
		// alive on a cold service instead of handling a 503.
		if r.URL.Query().Get("fallback") == "neutral" {
			writeJSON(w, http.StatusOK, models.PredictionResponse{
				PredictedLabel:       predict.LabelShow,
				PredictedProbability: 0.5,
				ModelVersion:         "unavailable",
			})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "model not ready",
		})
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("Prediction failed")
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}

	metrics.RecordPrediction()
	if err := s.predictionLog.RecordPrediction(r.Context(), req.PatientID, resolved, resp, time.Since(start)); err != nil {
		logger.Log.WithError(err).Warn("Failed to record prediction log")
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *PredictionService) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.Status())
}

func (s *PredictionService) handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	logs, err := s.predictionLog.Recent(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch prediction logs")
		http.Error(w, "Failed to fetch prediction logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *PredictionService) handleRecordOutcome(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	var event models.OutcomeEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if event.PatientID == "" {
		http.Error(w, "patient_id is required", http.StatusBadRequest)
		return
	}

	if err := s.recordOutcome(r.Context(), event); err != nil {
		logger.Log.WithError(err).Error("Failed to record outcome")
		http.Error(w, "Failed to record outcome", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *PredictionService) handleRetrain(w http.ResponseWriter, r *http.Request) {
	result, err := s.orchestrator.RetrainNow(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("Manual retrain failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *PredictionService) handleOutcomeEvent(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	var outcome models.OutcomeEvent
	if err := json.Unmarshal(payload, &outcome); err != nil {
		return fmt.Errorf("failed to decode outcome event: %w", err)
	}
	if outcome.PatientID == "" {
		logger.Log.WithField("event_id", event.ID).Warn("Outcome event without patient id skipped")
		return nil
	}
	return s.recordOutcome(ctx, outcome)
}

// recordOutcome appends the outcome with the patient's pre-outcome attendance
// score, refreshes the live score synchronously, and feeds the retrain
// counter. The counter update never blocks on retraining.
func (s *PredictionService) recordOutcome(ctx context.Context, event models.OutcomeEvent) error {
	scoreBefore, err := s.attendance.Get(ctx, event.PatientID)
	if err != nil {
		logger.Log.WithError(err).WithField("patient_id", event.PatientID).
			Warn("Attendance lookup failed; using neutral default")
	}

	if err := s.outcomeRepo.Insert(ctx, event, scoreBefore); err != nil {
		return err
	}

	shows, total, err := s.outcomeRepo.CompletedStats(ctx, event.PatientID)
	if err != nil {
		logger.Log.WithError(err).WithField("patient_id", event.PatientID).
			Warn("Failed to compute attendance stats")
	} else if total > 0 {
		refreshed := float64(shows) / float64(total) * 100.0
		if err := s.attendance.Set(ctx, event.PatientID, refreshed); err != nil {
			logger.Log.WithError(err).WithField("patient_id", event.PatientID).
				Warn("Failed to refresh attendance score")
		}
	}

	s.orchestrator.RecordOutcome()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response")
	}
}
