package modelstore

import (
	"sync"
	"testing"

	"github.com/health-sphere/noshow-platform/pkg/common/models"
)

func TestActiveBeforeReplace(t *testing.T) {
	store := NewStore()
	if store.Ready() {
		t.Fatal("new store must not be ready")
	}
	if _, err := store.Active(); err != ErrModelNotReady {
		t.Fatalf("expected ErrModelNotReady, got %v", err)
	}
}

func TestReplaceSwapsHandle(t *testing.T) {
	store := NewStore()
	first := &Artifact{Version: "logistic_v1"}
	second := &Artifact{Version: "logistic_v2"}

	store.Replace(first)
	held, err := store.Active()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.Replace(second)
	if held.Version != "logistic_v1" {
		t.Fatal("in-flight reader must keep the artifact it fetched")
	}

	current, _ := store.Active()
	if current.Version != "logistic_v2" {
		t.Fatalf("expected logistic_v2 active, got %s", current.Version)
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	store := NewStore()
	store.Replace(&Artifact{Version: "logistic_v1"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				artifact, err := store.Active()
				if err != nil || artifact == nil {
					t.Error("reader observed a missing artifact")
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 2; j < 100; j++ {
			store.Replace(&Artifact{Version: "logistic_v2"})
		}
	}()
	wg.Wait()
}

func TestFeatureVectorOrdering(t *testing.T) {
	artifact := &Artifact{
		Version:      "logistic_v1",
		FeatureNames: []string{"age", "attendance_score", "sms_received"},
	}
	sample, err := artifact.FeatureVector(models.Features{Age: 45, AttendanceScore: 90.0, SMSReceived: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{45, 90.0, 1}
	for i := range want {
		if sample[i] != want[i] {
			t.Fatalf("feature %d: expected %f, got %f", i, want[i], sample[i])
		}
	}

	artifact.FeatureNames = []string{"age", "bogus"}
	if _, err := artifact.FeatureVector(models.Features{}); err == nil {
		t.Fatal("expected error for unknown feature name")
	}
}

func TestScalerTransform(t *testing.T) {
	scaler := Scaler{Means: []float64{10, 0}, Stds: []float64{2, 0}}
	out := scaler.Transform([]float64{14, 5})
	if out[0] != 2 {
		t.Fatalf("expected (14-10)/2 = 2, got %f", out[0])
	}
	// Zero std falls back to the raw offset rather than dividing by zero.
	if out[1] != 5 {
		t.Fatalf("expected zero-std feature passed through, got %f", out[1])
	}
}
