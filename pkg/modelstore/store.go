package modelstore

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrModelNotReady is returned when a prediction is requested before any
// artifact has been committed.
var ErrModelNotReady = errors.New("model not ready: no trained artifact is active")

// Store owns the single active model artifact. Reads are a lone atomic
// pointer load, so prediction traffic never blocks on a retrain beyond the
// instant of the swap. Replace calls serialize behind a mutex; the store is
// constructed once at the composition root and shared by reference.
type Store struct {
	active  atomic.Pointer[Artifact]
	writeMu sync.Mutex
}

func NewStore() *Store {
	return &Store{}
}

// Active returns the current artifact. The returned artifact is an immutable
// handle: in-flight readers keep using whatever they fetched even while a
// replace is in progress.
func (s *Store) Active() (*Artifact, error) {
	artifact := s.active.Load()
	if artifact == nil {
		return nil, ErrModelNotReady
	}
	return artifact, nil
}

// Ready reports whether an artifact has ever been committed.
func (s *Store) Ready() bool {
	return s.active.Load() != nil
}

// Replace atomically swaps the active artifact. At most one writer proceeds
// at a time; readers never observe a partially written artifact.
func (s *Store) Replace(artifact *Artifact) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.active.Store(artifact)
}
