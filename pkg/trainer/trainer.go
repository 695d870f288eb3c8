package trainer

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/health-sphere/noshow-platform/pkg/common/logger"
	"github.com/health-sphere/noshow-platform/pkg/common/models"
	"github.com/health-sphere/noshow-platform/pkg/ml/linear"
	"github.com/health-sphere/noshow-platform/pkg/modelstore"
)

// Trainer fits a classifier from a labeled feature table. It is independent
// of whatever triggered the run; versioning and commit belong to the
// orchestrator.
type Trainer struct {
	profile Profile
}

func New(profile Profile) *Trainer {
	return &Trainer{profile: profile}
}

func (t *Trainer) Profile() Profile {
	return t.profile
}

// Fit splits the table into stratified train/eval partitions with the
// profile's fixed seed, standardizes features with parameters fitted on the
// training partition only, trains, and evaluates on the held-out partition.
// The returned artifact carries no version; the orchestrator stamps one
// before committing.
func (t *Trainer) Fit(records []models.FeatureRecord) (*modelstore.Artifact, float64, error) {
	if len(records) < t.profile.MinRows {
		return nil, 0, &InsufficientDataError{
			Rows:   len(records),
			Reason: fmt.Sprintf("need at least %d labeled rows", t.profile.MinRows),
		}
	}

	var positives, negatives []int
	for i, r := range records {
		if r.ShowedUp {
			positives = append(positives, i)
		} else {
			negatives = append(negatives, i)
		}
	}
	if len(positives) == 0 || len(negatives) == 0 {
		return nil, 0, &InsufficientDataError{
			Rows:   len(records),
			Reason: "one label class is absent; stratified split is undefined",
		}
	}

	rng := rand.New(rand.NewSource(t.profile.Seed))
	trainIdx, evalIdx := stratifiedSplit(rng, positives, negatives, t.profile.EvalRatio)

	trainSamples, trainLabels, err := t.vectorize(records, trainIdx)
	if err != nil {
		return nil, 0, err
	}
	evalSamples, evalLabels, err := t.vectorize(records, evalIdx)
	if err != nil {
		return nil, 0, err
	}

	scaler := fitScaler(trainSamples)
	for i := range trainSamples {
		trainSamples[i] = scaler.Transform(trainSamples[i])
	}
	for i := range evalSamples {
		evalSamples[i] = scaler.Transform(evalSamples[i])
	}

	weights := linear.TrainLogistic(trainSamples, trainLabels, linear.Options{
		Epochs:       t.profile.Epochs,
		LearningRate: t.profile.LearningRate,
	})
	metrics := linear.Evaluate(weights, evalSamples, evalLabels)

	logger.Log.WithFields(map[string]interface{}{
		"train_rows": len(trainSamples),
		"eval_rows":  len(evalSamples),
		"accuracy":   metrics.Accuracy,
		"loss":       metrics.Loss,
	}).Info("Model fitted")

	artifact := &modelstore.Artifact{
		Algorithm:    t.profile.Algorithm,
		FeatureNames: append([]string(nil), t.profile.FeatureNames...),
		Weights:      weights,
		Scaler:       scaler,
		Accuracy:     metrics.Accuracy,
		TrainedAt:    time.Now().UTC(),
	}
	return artifact, metrics.Accuracy, nil
}

func (t *Trainer) vectorize(records []models.FeatureRecord, indices []int) ([][]float64, []float64, error) {
	samples := make([][]float64, 0, len(indices))
	labels := make([]float64, 0, len(indices))
	for _, idx := range indices {
		r := records[idx]
		sample := make([]float64, len(t.profile.FeatureNames))
		for j, name := range t.profile.FeatureNames {
			switch name {
			case "age":
				sample[j] = float64(r.Age)
			case "attendance_score":
				sample[j] = r.AttendanceScore
			case "sms_received":
				if r.SMSReceived {
					sample[j] = 1
				}
			case "scheduling_interval":
				sample[j] = float64(r.SchedulingInterval)
			default:
				return nil, nil, fmt.Errorf("training profile references unknown feature %q", name)
			}
		}
		samples = append(samples, sample)
		if r.ShowedUp {
			labels = append(labels, 1)
		} else {
			labels = append(labels, 0)
		}
	}
	return samples, labels, nil
}

// stratifiedSplit shuffles each class with the shared rng and carves the eval
// tail per class, so both partitions preserve the full table's class ratio.
func stratifiedSplit(rng *rand.Rand, positives, negatives []int, evalRatio float64) (train, eval []int) {
	for _, class := range [][]int{positives, negatives} {
		shuffled := append([]int(nil), class...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		evalCount := int(math.Round(float64(len(shuffled)) * evalRatio))
		if evalCount == 0 && len(shuffled) > 1 {
			evalCount = 1
		}
		eval = append(eval, shuffled[:evalCount]...)
		train = append(train, shuffled[evalCount:]...)
	}
	return train, eval
}

func fitScaler(samples [][]float64) modelstore.Scaler {
	if len(samples) == 0 {
		return modelstore.Scaler{}
	}
	featureCount := len(samples[0])
	means := make([]float64, featureCount)
	stds := make([]float64, featureCount)

	for _, sample := range samples {
		for j, v := range sample {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(samples))
	}
	for _, sample := range samples {
		for j, v := range sample {
			diff := v - means[j]
			stds[j] += diff * diff
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / float64(len(samples)))
	}
	return modelstore.Scaler{Means: means, Stds: stds}
}
