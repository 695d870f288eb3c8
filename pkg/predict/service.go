package predict

import (
	"github.com/health-sphere/noshow-platform/pkg/common/models"
	"github.com/health-sphere/noshow-platform/pkg/ml/linear"
	"github.com/health-sphere/noshow-platform/pkg/modelstore"
)

const (
	LabelShow   = "show"
	LabelNoShow = "no-show"
)

// Service is a stateless prediction facade over the model store. It fetches
// the active artifact on every call and never caches it, so a hot swap is
// visible to the very next prediction.
type Service struct {
	store *modelstore.Store
}

func NewService(store *modelstore.Store) *Service {
	return &Service{store: store}
}

// Predict scores one appointment. Returns modelstore.ErrModelNotReady when
// no artifact is active; the degrade policy (e.g. a neutral default on the
// appointment-creation path) belongs to the caller.
func (s *Service) Predict(features models.Features) (models.PredictionResponse, error) {
	artifact, err := s.store.Active()
	if err != nil {
		return models.PredictionResponse{}, err
	}

	sample, err := artifact.FeatureVector(features)
	if err != nil {
		return models.PredictionResponse{}, err
	}
	scaled := artifact.Scaler.Transform(sample)
	probability := linear.Predict(artifact.Weights, scaled)

	// probability is P(show); ties at exactly 0.5 resolve to "show".
	label := LabelNoShow
	if probability >= 0.5 {
		label = LabelShow
	}

	return models.PredictionResponse{
		PredictedLabel:       label,
		PredictedProbability: probability,
		ModelVersion:         artifact.Version,
	}, nil
}
