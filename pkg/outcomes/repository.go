package outcomes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/health-sphere/noshow-platform/pkg/common/logger"
	"github.com/health-sphere/noshow-platform/pkg/common/models"
	"gorm.io/gorm"
)

// OutcomeModel is one completed, labeled appointment outcome in the
// operational store. Rows are written by the booking layer when an
// appointment is marked done; this package only ever appends and reads.
type OutcomeModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey;column:id"`
	AppointmentID      string    `gorm:"column:appointment_id;index"`
	PatientID          string    `gorm:"column:patient_id;index"`
	Age                int       `gorm:"column:age"`
	AttendanceScore    float64   `gorm:"column:attendance_score"`
	SMSReceived        bool      `gorm:"column:sms_received"`
	SchedulingInterval int       `gorm:"column:scheduling_interval"`
	ShowedUp           bool      `gorm:"column:showed_up"`
	RecordedAt         time.Time `gorm:"column:recorded_at"`
}

func (OutcomeModel) TableName() string {
	return "appointment_outcomes"
}

// Repository is the narrow adapter over the live operational store that
// yields completed outcomes for incremental retraining.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&OutcomeModel{})
}

// Insert appends one decided outcome.
func (r *Repository) Insert(ctx context.Context, event models.OutcomeEvent, attendanceScore float64) error {
	row := OutcomeModel{
		ID:                 uuid.New(),
		AppointmentID:      event.AppointmentID,
		PatientID:          event.PatientID,
		Age:                event.Age,
		AttendanceScore:    attendanceScore,
		SMSReceived:        event.SMSReceived,
		SchedulingInterval: event.SchedulingInterval,
		ShowedUp:           event.ShowedUp,
		RecordedAt:         time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

// FetchCompletedOutcomes returns every decided outcome as a feature record.
// Individually malformed rows are skipped, never failing the whole fetch.
func (r *Repository) FetchCompletedOutcomes(ctx context.Context) ([]models.FeatureRecord, error) {
	var rows []OutcomeModel
	if err := r.db.WithContext(ctx).Order("recorded_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]models.FeatureRecord, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		if !validOutcome(row) {
			skipped++
			continue
		}
		records = append(records, models.FeatureRecord{
			Age:                row.Age,
			AttendanceScore:    row.AttendanceScore,
			SMSReceived:        row.SMSReceived,
			SchedulingInterval: row.SchedulingInterval,
			ShowedUp:           row.ShowedUp,
		})
	}
	if skipped > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"skipped": skipped,
			"kept":    len(records),
		}).Warn("Skipped malformed outcome rows during fetch")
	}
	return records, nil
}

// CompletedStats returns the patient's decided-outcome counts, used to
// refresh the live attendance score after each new outcome.
func (r *Repository) CompletedStats(ctx context.Context, patientID string) (shows int64, total int64, err error) {
	base := r.db.WithContext(ctx).Model(&OutcomeModel{}).Where("patient_id = ?", patientID)
	if err = base.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = r.db.WithContext(ctx).Model(&OutcomeModel{}).
		Where("patient_id = ? AND showed_up = ?", patientID, true).
		Count(&shows).Error; err != nil {
		return 0, 0, err
	}
	return shows, total, nil
}

func validOutcome(row OutcomeModel) bool {
	if row.Age < 0 || row.Age > 120 {
		return false
	}
	if row.AttendanceScore < 0 || row.AttendanceScore > 100 {
		return false
	}
	if row.SchedulingInterval < 0 {
		return false
	}
	return true
}
