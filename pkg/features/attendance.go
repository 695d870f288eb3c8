package features

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/health-sphere/noshow-platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// AttendanceStore keeps the live per-patient attendance score in Redis.
// It is the current-snapshot variant of the historical feature: the score is
// refreshed synchronously after every recorded outcome, so a prediction for a
// patient always reads a value computed without that appointment's outcome.
type AttendanceStore struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	neutral float64
}

func NewAttendanceStore(client *redis.Client, prefix string, ttl time.Duration, neutral float64) *AttendanceStore {
	return &AttendanceStore{client: client, prefix: prefix, ttl: ttl, neutral: neutral}
}

// Get returns the patient's current attendance score, or the neutral default
// for patients without prior history.
func (s *AttendanceStore) Get(ctx context.Context, patientID string) (float64, error) {
	value, err := s.client.Get(ctx, s.key(patientID)).Result()
	if err == redis.Nil {
		return s.neutral, nil
	}
	if err != nil {
		return s.neutral, err
	}
	score, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logger.Log.WithError(err).WithField("patient_id", patientID).
			Warn("Corrupt attendance score in cache; using neutral default")
		return s.neutral, nil
	}
	return score, nil
}

// Set writes the patient's refreshed attendance score.
func (s *AttendanceStore) Set(ctx context.Context, patientID string, score float64) error {
	return s.client.Set(ctx, s.key(patientID), strconv.FormatFloat(score, 'f', 1, 64), s.ttl).Err()
}

func (s *AttendanceStore) key(patientID string) string {
	return fmt.Sprintf("%s:attendance:%s", s.prefix, patientID)
}
