package models

import "testing"

func TestFeatureInputResolveOmittedScore(t *testing.T) {
	input := FeatureInput{Age: 45, SMSReceived: true}
	features := input.Resolve(75.0)
	if features.AttendanceScore != 75.0 {
		t.Fatalf("expected fallback score for omitted field, got %f", features.AttendanceScore)
	}
	if features.Age != 45 || !features.SMSReceived {
		t.Fatalf("unexpected passthrough fields: %+v", features)
	}
}

func TestFeatureInputResolveExplicitZero(t *testing.T) {
	zero := 0.0
	input := FeatureInput{Age: 45, AttendanceScore: &zero}
	features := input.Resolve(75.0)
	// A patient who never showed has a real score of 0; the fallback must
	// not overwrite it.
	if features.AttendanceScore != 0.0 {
		t.Fatalf("expected explicit zero honored, got %f", features.AttendanceScore)
	}
}
