package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	predictionsTotal      atomic.Int64
	predictionsNotReady   atomic.Int64
	outcomesRecorded      atomic.Int64
	retrainsTotal         atomic.Int64
	retrainFailuresTotal  atomic.Int64
	retrainsCoalesced     atomic.Int64
	outcomesSinceRetrain  atomic.Int64
	lastRetrainAccuracyPM atomic.Int64 // accuracy * 10000, avoids a float atomic
)

func RecordPrediction() {
	predictionsTotal.Add(1)
}

func RecordPredictionNotReady() {
	predictionsNotReady.Add(1)
}

func RecordOutcome(sinceRetrain int) {
	outcomesRecorded.Add(1)
	outcomesSinceRetrain.Store(int64(sinceRetrain))
}

func RecordRetrainSuccess(accuracy float64) {
	retrainsTotal.Add(1)
	outcomesSinceRetrain.Store(0)
	lastRetrainAccuracyPM.Store(int64(accuracy * 10000))
}

func RecordRetrainFailure() {
	retrainFailuresTotal.Add(1)
}

func RecordRetrainCoalesced() {
	retrainsCoalesced.Add(1)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP noshow_predictions_total Number of predictions served since process start.\n")
	fmt.Fprintf(w, "# TYPE noshow_predictions_total counter\n")
	fmt.Fprintf(w, "noshow_predictions_total %d\n", predictionsTotal.Load())

	fmt.Fprintf(w, "# HELP noshow_predictions_not_ready_total Number of predictions rejected because no model was active.\n")
	fmt.Fprintf(w, "# TYPE noshow_predictions_not_ready_total counter\n")
	fmt.Fprintf(w, "noshow_predictions_not_ready_total %d\n", predictionsNotReady.Load())

	fmt.Fprintf(w, "# HELP noshow_outcomes_recorded_total Number of appointment outcomes recorded since process start.\n")
	fmt.Fprintf(w, "# TYPE noshow_outcomes_recorded_total counter\n")
	fmt.Fprintf(w, "noshow_outcomes_recorded_total %d\n", outcomesRecorded.Load())

	fmt.Fprintf(w, "# HELP noshow_outcomes_since_retrain Outcomes accumulated toward the next retrain threshold.\n")
	fmt.Fprintf(w, "# TYPE noshow_outcomes_since_retrain gauge\n")
	fmt.Fprintf(w, "noshow_outcomes_since_retrain %d\n", outcomesSinceRetrain.Load())

	fmt.Fprintf(w, "# HELP noshow_retrains_total Number of successful retrains since process start.\n")
	fmt.Fprintf(w, "# TYPE noshow_retrains_total counter\n")
	fmt.Fprintf(w, "noshow_retrains_total %d\n", retrainsTotal.Load())

	fmt.Fprintf(w, "# HELP noshow_retrain_failures_total Number of failed retrains since process start.\n")
	fmt.Fprintf(w, "# TYPE noshow_retrain_failures_total counter\n")
	fmt.Fprintf(w, "noshow_retrain_failures_total %d\n", retrainFailuresTotal.Load())

	fmt.Fprintf(w, "# HELP noshow_retrains_coalesced_total Number of retrain triggers dropped because one was already in flight.\n")
	fmt.Fprintf(w, "# TYPE noshow_retrains_coalesced_total counter\n")
	fmt.Fprintf(w, "noshow_retrains_coalesced_total %d\n", retrainsCoalesced.Load())

	fmt.Fprintf(w, "# HELP noshow_last_retrain_accuracy_pm Held-out accuracy of the last successful retrain, scaled by 10000.\n")
	fmt.Fprintf(w, "# TYPE noshow_last_retrain_accuracy_pm gauge\n")
	fmt.Fprintf(w, "noshow_last_retrain_accuracy_pm %d\n", lastRetrainAccuracyPM.Load())
}
