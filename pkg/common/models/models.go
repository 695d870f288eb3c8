package models

import "time"

// FeatureRecord is one labeled training example for the no-show classifier.
// A record exists only for appointments whose outcome is decided; pending and
// cancelled appointments never produce one.
type FeatureRecord struct {
	Age                int     `json:"age"`
	AttendanceScore    float64 `json:"attendance_score"`
	SMSReceived        bool    `json:"sms_received"`
	SchedulingInterval int     `json:"scheduling_interval"`
	ShowedUp           bool    `json:"showed_up"`
}

// Features carries the model inputs for a single prediction.
type Features struct {
	Age                int     `json:"age"`
	AttendanceScore    float64 `json:"attendance_score"`
	SMSReceived        bool    `json:"sms_received"`
	SchedulingInterval int     `json:"scheduling_interval,omitempty"`
}

type PredictionRequest struct {
	PatientID string       `json:"patient_id,omitempty"`
	Features  FeatureInput `json:"features"`
}

// FeatureInput mirrors Features on the wire. attendance_score is a pointer
// so an omitted score can be resolved from the online store while an
// explicit value, including 0, is honored as given.
type FeatureInput struct {
	Age                int      `json:"age"`
	AttendanceScore    *float64 `json:"attendance_score,omitempty"`
	SMSReceived        bool     `json:"sms_received"`
	SchedulingInterval int      `json:"scheduling_interval,omitempty"`
}

// Resolve materializes the input, substituting fallback for an omitted
// attendance score.
func (f FeatureInput) Resolve(fallback float64) Features {
	score := fallback
	if f.AttendanceScore != nil {
		score = *f.AttendanceScore
	}
	return Features{
		Age:                f.Age,
		AttendanceScore:    score,
		SMSReceived:        f.SMSReceived,
		SchedulingInterval: f.SchedulingInterval,
	}
}

type PredictionResponse struct {
	PredictedLabel       string  `json:"predicted_label"` // "show" | "no-show"
	PredictedProbability float64 `json:"predicted_probability"`
	ModelVersion         string  `json:"model_version"`
}

// RetrainResult summarizes one completed retrain run.
type RetrainResult struct {
	Version   string  `json:"version"`
	Accuracy  float64 `json:"accuracy"`
	TotalRows int     `json:"total_rows"`
	LiveRows  int     `json:"live_rows"`
}

// ModelStatus is the operator-facing view of the active model.
type ModelStatus struct {
	Version   string     `json:"version"`
	IsReady   bool       `json:"is_ready"`
	Accuracy  float64    `json:"accuracy,omitempty"`
	TrainedAt *time.Time `json:"trained_at,omitempty"`
}

// OutcomeEvent is published on the outcome topic when an appointment is
// marked done by the booking layer.
type OutcomeEvent struct {
	AppointmentID      string `json:"appointment_id"`
	PatientID          string `json:"patient_id"`
	Age                int    `json:"age"`
	SMSReceived        bool   `json:"sms_received"`
	SchedulingInterval int    `json:"scheduling_interval"`
	ShowedUp           bool   `json:"showed_up"`
}

// Event is the envelope for all bus traffic.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // outcome.recorded, model.retrained
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
