package dataset

import (
	"sort"

	"github.com/health-sphere/noshow-platform/pkg/common/logger"
	"github.com/health-sphere/noshow-platform/pkg/common/models"
)

// NeutralAttendanceScore is the score assigned to a record whose patient has
// no completed appointments before it.
const NeutralAttendanceScore = 75.0

// Builder turns raw baseline tables into a labeled, leakage-free training
// table.
type Builder struct {
	source Source
}

func NewBuilder(source Source) *Builder {
	return &Builder{source: source}
}

// BuildTrainingTable runs the full pipeline: load, clean, deduplicate,
// derive features, and compute per-record historical attendance scores.
//
// The attendance score of each record is a strict prefix computation: only
// that patient's appointments with strictly earlier dates contribute, so a
// record's own outcome never leaks into its own features.
func (b *Builder) BuildTrainingTable() ([]models.FeatureRecord, error) {
	raw, err := b.source.Load()
	if err != nil {
		return nil, err
	}

	patients := cleanPatients(raw.Patients)
	if len(patients) == 0 {
		return nil, integrityError(TablePatients, "no valid rows after cleaning")
	}

	appointments, smsProxied := cleanAppointments(raw.Appointments)
	if len(appointments) == 0 {
		return nil, integrityError(TableAppointments, "no rows with a decided outcome after cleaning")
	}

	// Explicit sort key before any cumulative computation: never rely on
	// arrival order. Appointment id breaks same-day ties deterministically.
	sort.SliceStable(appointments, func(i, j int) bool {
		a, b := appointments[i], appointments[j]
		if a.PatientID != b.PatientID {
			return a.PatientID < b.PatientID
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.AppointmentID < b.AppointmentID
	})

	records := make([]models.FeatureRecord, 0, len(appointments))
	priorShows := make(map[string]int)
	priorTotal := make(map[string]int)
	for _, appt := range appointments {
		score := NeutralAttendanceScore
		if total := priorTotal[appt.PatientID]; total > 0 {
			score = float64(priorShows[appt.PatientID]) / float64(total) * 100.0
		}

		records = append(records, models.FeatureRecord{
			Age:                appt.Age,
			AttendanceScore:    score,
			SMSReceived:        appt.SMSReceived,
			SchedulingInterval: appt.SchedulingInterval,
			ShowedUp:           appt.ShowedUp,
		})

		priorTotal[appt.PatientID]++
		if appt.ShowedUp {
			priorShows[appt.PatientID]++
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"patients":     len(patients),
		"rows":         len(records),
		"sms_proxied":  smsProxied,
		"show_up_rate": showUpRate(records),
	}).Info("Training table built")

	return records, nil
}

func showUpRate(records []models.FeatureRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var shows int
	for _, r := range records {
		if r.ShowedUp {
			shows++
		}
	}
	return float64(shows) / float64(len(records))
}
