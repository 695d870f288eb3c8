package modelstore

import (
	"fmt"
	"time"

	"github.com/health-sphere/noshow-platform/pkg/common/models"
	"github.com/health-sphere/noshow-platform/pkg/ml/linear"
)

// Scaler holds per-feature standardization parameters fitted on a training
// partition. Embedding them in the artifact keeps prediction-time transforms
// byte-for-byte consistent with training.
type Scaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// Transform standardizes a raw feature vector.
func (s Scaler) Transform(sample []float64) []float64 {
	out := make([]float64, len(sample))
	for i, v := range sample {
		mean, std := 0.0, 1.0
		if i < len(s.Means) {
			mean = s.Means[i]
		}
		if i < len(s.Stds) && s.Stds[i] != 0 {
			std = s.Stds[i]
		}
		out[i] = (v - mean) / std
	}
	return out
}

// Artifact is a versioned, immutable snapshot of a trained classifier.
// It is created by the trainer, committed by the orchestrator, and never
// mutated after a reader fetches it.
type Artifact struct {
	Version      string         `json:"version"`
	Algorithm    string         `json:"algorithm"`
	FeatureNames []string       `json:"feature_names"`
	Weights      linear.Weights `json:"weights"`
	Scaler       Scaler         `json:"scaler"`
	Accuracy     float64        `json:"accuracy"`
	TrainedAt    time.Time      `json:"trained_at"`
}

// FeatureVector projects prediction inputs onto the artifact's feature order.
func (a *Artifact) FeatureVector(f models.Features) ([]float64, error) {
	sample := make([]float64, len(a.FeatureNames))
	for i, name := range a.FeatureNames {
		switch name {
		case "age":
			sample[i] = float64(f.Age)
		case "attendance_score":
			sample[i] = f.AttendanceScore
		case "sms_received":
			sample[i] = boolToFloat(f.SMSReceived)
		case "scheduling_interval":
			sample[i] = float64(f.SchedulingInterval)
		default:
			return nil, fmt.Errorf("unknown feature %q in artifact %s", name, a.Version)
		}
	}
	return sample, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
