package predict

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/health-sphere/noshow-platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionLog is the persistence model for prediction audit analytics.
type PredictionLog struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	PatientID    string            `gorm:"column:patient_id"`
	ModelVersion string            `gorm:"column:model_version"`
	Request      datatypes.JSONMap `gorm:"column:request"`
	Response     datatypes.JSONMap `gorm:"column:response"`
	LatencyMs    float64           `gorm:"column:latency_ms"`
	Probability  float64           `gorm:"column:probability"`
	CreatedAt    time.Time         `gorm:"column:created_at"`
}

func (PredictionLog) TableName() string {
	return "prediction_logs"
}

// Repository persists prediction audit rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPrediction(ctx context.Context, patientID string, features models.Features, resp models.PredictionResponse, latency time.Duration) error {
	log := PredictionLog{
		ID:           uuid.New(),
		PatientID:    patientID,
		ModelVersion: resp.ModelVersion,
		Request: datatypes.JSONMap{
			"age":                 features.Age,
			"attendance_score":    features.AttendanceScore,
			"sms_received":        features.SMSReceived,
			"scheduling_interval": features.SchedulingInterval,
		},
		Response: datatypes.JSONMap{
			"predicted_label":       resp.PredictedLabel,
			"predicted_probability": resp.PredictedProbability,
		},
		LatencyMs:   float64(latency.Microseconds()) / 1000.0,
		Probability: resp.PredictedProbability,
		CreatedAt:   time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&log).Error
}

// Recent returns the most recent prediction logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
