package linear

import "testing"

func TestTrainLogisticSeparableData(t *testing.T) {
	samples := [][]float64{
		{-2.0}, {-1.5}, {-1.2}, {-0.8},
		{0.8}, {1.1}, {1.6}, {2.3},
	}
	labels := []float64{0, 0, 0, 0, 1, 1, 1, 1}

	weights := TrainLogistic(samples, labels, Options{Epochs: 2000, LearningRate: 0.5})

	if Predict(weights, []float64{2.0}) < 0.5 {
		t.Fatal("expected positive sample to score above 0.5")
	}
	if Predict(weights, []float64{-2.0}) >= 0.5 {
		t.Fatal("expected negative sample to score below 0.5")
	}

	metrics := Evaluate(weights, samples, labels)
	if metrics.Accuracy != 1.0 {
		t.Fatalf("expected perfect accuracy on separable data, got %f", metrics.Accuracy)
	}
}

func TestTrainLogisticDeterministic(t *testing.T) {
	samples := [][]float64{{0.1, 1}, {0.9, 0}, {0.3, 1}, {0.7, 0}}
	labels := []float64{1, 0, 1, 0}
	opts := Options{Epochs: 100, LearningRate: 0.1}

	first := TrainLogistic(samples, labels, opts)
	second := TrainLogistic(samples, labels, opts)

	if first.Bias != second.Bias {
		t.Fatalf("bias differs between runs: %f vs %f", first.Bias, second.Bias)
	}
	for i := range first.Coefficients {
		if first.Coefficients[i] != second.Coefficients[i] {
			t.Fatalf("coefficient %d differs between runs", i)
		}
	}
}

func TestEvaluateEmptySet(t *testing.T) {
	metrics := Evaluate(Weights{}, nil, nil)
	if metrics.Accuracy != 0 || metrics.Loss != 0 {
		t.Fatalf("expected zero metrics for empty set, got %+v", metrics)
	}
}
