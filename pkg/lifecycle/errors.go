package lifecycle

import "fmt"

// RetrainFailure wraps any error raised during a retrain run. Synchronous
// callers receive it; the background worker logs it and leaves the previous
// model serving. It never reaches the prediction path.
type RetrainFailure struct {
	Stage string
	Err   error
}

func (e *RetrainFailure) Error() string {
	return fmt.Sprintf("retrain failed during %s: %v", e.Stage, e.Err)
}

func (e *RetrainFailure) Unwrap() error {
	return e.Err
}
