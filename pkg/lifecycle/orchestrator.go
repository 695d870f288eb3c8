package lifecycle

import (
	"context"
	"math/rand"
	"sync"

	"github.com/health-sphere/noshow-platform/pkg/common/logger"
	"github.com/health-sphere/noshow-platform/pkg/common/models"
	"github.com/health-sphere/noshow-platform/pkg/modelstore"
	"github.com/health-sphere/noshow-platform/pkg/observability/metrics"
)

// shuffleSeed fixes the merge-time shuffle so neither dataset source biases
// the tail of the training table run to run.
const shuffleSeed = 42

// DatasetBuilder yields the baseline training table.
type DatasetBuilder interface {
	BuildTrainingTable() ([]models.FeatureRecord, error)
}

// OutcomeFetcher yields freshly labeled outcomes from the operational store.
type OutcomeFetcher interface {
	FetchCompletedOutcomes(ctx context.Context) ([]models.FeatureRecord, error)
}

// Fitter trains a classifier from a merged table.
type Fitter interface {
	Fit(records []models.FeatureRecord) (*modelstore.Artifact, float64, error)
}

// Publisher announces lifecycle events on the bus. Optional.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Orchestrator decides when to retrain and commits the results. It is the
// only writer of the model store and of the durable model files; every
// retrain execution serializes behind retrainMu regardless of trigger.
type Orchestrator struct {
	builder   DatasetBuilder
	outcomes  OutcomeFetcher
	trainer   Fitter
	store     *modelstore.Store
	persist   *Persistence
	publisher Publisher

	threshold int

	counterMu sync.Mutex
	counter   int

	retrainMu sync.Mutex
	booted    bool

	// Capacity-one trigger queue. A trigger arriving while a retrain is in
	// flight and one is already queued is dropped; rerunning immediately
	// would train on the same data.
	triggers chan struct{}
}

type Options struct {
	Threshold int
	Publisher Publisher
}

func NewOrchestrator(builder DatasetBuilder, outcomes OutcomeFetcher, fitter Fitter, store *modelstore.Store, persist *Persistence, opts Options) *Orchestrator {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = 10
	}
	return &Orchestrator{
		builder:   builder,
		outcomes:  outcomes,
		trainer:   fitter,
		store:     store,
		persist:   persist,
		publisher: opts.Publisher,
		threshold: threshold,
		triggers:  make(chan struct{}, 1),
	}
}

// Bootstrap loads the durable artifact if one exists, otherwise trains from
// the baseline dataset and commits. Idempotent: a second call is a no-op.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	o.retrainMu.Lock()
	defer o.retrainMu.Unlock()

	if o.booted {
		return nil
	}

	artifact, err := o.persist.Load()
	if err != nil {
		return &RetrainFailure{Stage: "bootstrap-load", Err: err}
	}
	if artifact != nil {
		o.store.Replace(artifact)
		o.booted = true
		logger.Log.WithFields(map[string]interface{}{
			"version":  artifact.Version,
			"accuracy": artifact.Accuracy,
		}).Info("Loaded durable model artifact")
		return nil
	}

	logger.Log.Info("No durable model found; training from baseline dataset")
	table, err := o.builder.BuildTrainingTable()
	if err != nil {
		return &RetrainFailure{Stage: "bootstrap-dataset", Err: err}
	}

	artifact, accuracy, err := o.trainer.Fit(table)
	if err != nil {
		return &RetrainFailure{Stage: "bootstrap-train", Err: err}
	}
	artifact.Version = BaselineVersion

	if err := o.persist.Save(artifact); err != nil {
		return &RetrainFailure{Stage: "bootstrap-persist", Err: err}
	}
	o.store.Replace(artifact)
	o.booted = true

	logger.Log.WithFields(map[string]interface{}{
		"version":  artifact.Version,
		"accuracy": accuracy,
		"rows":     len(table),
	}).Info("Cold-start training complete")
	return nil
}

// RecordOutcome counts one newly decided appointment outcome. It returns
// immediately; when the counter reaches the threshold it resets and enqueues
// an asynchronous retrain for the background worker.
func (o *Orchestrator) RecordOutcome() {
	o.counterMu.Lock()
	o.counter++
	count := o.counter
	trigger := count >= o.threshold
	if trigger {
		o.counter = 0
		count = 0
	}
	o.counterMu.Unlock()

	metrics.RecordOutcome(count)
	if !trigger {
		return
	}

	select {
	case o.triggers <- struct{}{}:
		logger.Log.WithField("threshold", o.threshold).Info("Retrain threshold reached; retrain scheduled")
	default:
		metrics.RecordRetrainCoalesced()
		logger.Log.Debug("Retrain already pending; trigger coalesced")
	}
}

// RunWorker consumes retrain triggers until ctx is canceled. It is the single
// consumer of the trigger queue, so at most one background retrain runs at a
// time. Failures are logged and swallowed; the previous model keeps serving.
func (o *Orchestrator) RunWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.triggers:
			result, err := o.RetrainNow(ctx)
			if err != nil {
				logger.Log.WithError(err).Error("Background retrain failed; previous model remains active")
				continue
			}
			logger.Log.WithFields(map[string]interface{}{
				"version":  result.Version,
				"accuracy": result.Accuracy,
			}).Info("Background retrain complete")
		}
	}
}

// RetrainNow runs a full retrain synchronously: merge baseline and live
// outcomes, shuffle with a fixed seed, fit, bump the version, persist, and
// swap the active model. On any failure nothing is committed.
func (o *Orchestrator) RetrainNow(ctx context.Context) (models.RetrainResult, error) {
	o.retrainMu.Lock()
	defer o.retrainMu.Unlock()

	baseline, err := o.builder.BuildTrainingTable()
	if err != nil {
		metrics.RecordRetrainFailure()
		return models.RetrainResult{}, &RetrainFailure{Stage: "dataset", Err: err}
	}

	live, err := o.outcomes.FetchCompletedOutcomes(ctx)
	if err != nil {
		// The operational store being unreachable degrades to a
		// baseline-only retrain rather than failing the run.
		logger.Log.WithError(err).Warn("Could not fetch live outcomes; retraining on baseline only")
		live = nil
	}

	merged := make([]models.FeatureRecord, 0, len(baseline)+len(live))
	merged = append(merged, baseline...)
	merged = append(merged, live...)

	rng := rand.New(rand.NewSource(shuffleSeed))
	rng.Shuffle(len(merged), func(i, j int) {
		merged[i], merged[j] = merged[j], merged[i]
	})

	artifact, accuracy, err := o.trainer.Fit(merged)
	if err != nil {
		metrics.RecordRetrainFailure()
		return models.RetrainResult{}, &RetrainFailure{Stage: "train", Err: err}
	}
	artifact.Version = bumpVersion(o.currentVersion())

	// Persist before swapping: if the durable write fails the previous
	// model keeps serving and the lineage on disk stays consistent.
	if err := o.persist.Save(artifact); err != nil {
		metrics.RecordRetrainFailure()
		return models.RetrainResult{}, &RetrainFailure{Stage: "persist", Err: err}
	}
	o.store.Replace(artifact)
	o.booted = true

	o.counterMu.Lock()
	o.counter = 0
	o.counterMu.Unlock()

	metrics.RecordRetrainSuccess(accuracy)

	result := models.RetrainResult{
		Version:   artifact.Version,
		Accuracy:  accuracy,
		TotalRows: len(merged),
		LiveRows:  len(live),
	}

	if o.publisher != nil {
		if err := o.publisher.PublishEvent(ctx, "model.retrained", "lifecycle", map[string]interface{}{
			"version":    result.Version,
			"accuracy":   result.Accuracy,
			"total_rows": result.TotalRows,
			"live_rows":  result.LiveRows,
		}); err != nil {
			logger.Log.WithError(err).Warn("Failed to publish retrain event")
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"version":    result.Version,
		"accuracy":   result.Accuracy,
		"total_rows": result.TotalRows,
		"live_rows":  result.LiveRows,
	}).Info("Retrain committed")

	return result, nil
}

// Status reports the operator-facing view of the active model.
func (o *Orchestrator) Status() models.ModelStatus {
	artifact, err := o.store.Active()
	if err != nil {
		return models.ModelStatus{IsReady: false}
	}
	trainedAt := artifact.TrainedAt
	return models.ModelStatus{
		Version:   artifact.Version,
		IsReady:   true,
		Accuracy:  artifact.Accuracy,
		TrainedAt: &trainedAt,
	}
}

func (o *Orchestrator) currentVersion() string {
	if artifact, err := o.store.Active(); err == nil {
		return artifact.Version
	}
	if artifact, err := o.persist.Load(); err == nil && artifact != nil {
		return artifact.Version
	}
	return BaselineVersion
}
