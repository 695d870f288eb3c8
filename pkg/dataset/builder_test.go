package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/health-sphere/noshow-platform/pkg/common/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type memorySource struct {
	tables RawTables
}

func (m *memorySource) Load() (RawTables, error) {
	return m.tables, nil
}

func patientTable(rows ...map[string]string) Table {
	return Table{Name: TablePatients, Columns: []string{"patient_id", "name"}, Rows: rows}
}

func appointmentTable(columns []string, rows ...map[string]string) Table {
	return Table{Name: TableAppointments, Columns: columns, Rows: rows}
}

var apptColumns = []string{"appointment_id", "patient_id", "appointment_date", "scheduling_interval", "status", "age"}

func TestBuildTrainingTableNoLeakage(t *testing.T) {
	source := &memorySource{tables: RawTables{
		Patients: patientTable(map[string]string{"patient_id": "P-001", "name": "Ada"}),
		Appointments: appointmentTable(apptColumns,
			map[string]string{"appointment_id": "A-1", "patient_id": "P-001", "appointment_date": "2024-01-05", "scheduling_interval": "1", "status": "did not attend", "age": "45"},
			map[string]string{"appointment_id": "A-2", "patient_id": "P-001", "appointment_date": "2024-02-05", "scheduling_interval": "1", "status": "attended", "age": "45"},
		),
		Slots: Table{Name: TableSlots},
	}}

	records, err := NewBuilder(source).BuildTrainingTable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	// First appointment has no history: neutral default.
	if records[0].AttendanceScore != NeutralAttendanceScore {
		t.Fatalf("expected neutral score for first record, got %f", records[0].AttendanceScore)
	}
	// Second appointment sees only the first outcome (a no-show), never its own.
	if records[1].AttendanceScore != 0.0 {
		t.Fatalf("expected second record score 0.0 from prior no-show, got %f", records[1].AttendanceScore)
	}
}

func TestBuildTrainingTableExcludesUndecidedStatuses(t *testing.T) {
	source := &memorySource{tables: RawTables{
		Patients: patientTable(map[string]string{"patient_id": "P-001", "name": "Ada"}),
		Appointments: appointmentTable(apptColumns,
			map[string]string{"appointment_id": "A-1", "patient_id": "P-001", "appointment_date": "2024-01-05", "scheduling_interval": "5", "status": "attended", "age": "30"},
			map[string]string{"appointment_id": "A-2", "patient_id": "P-001", "appointment_date": "2024-01-06", "scheduling_interval": "5", "status": "cancelled", "age": "30"},
			map[string]string{"appointment_id": "A-3", "patient_id": "P-001", "appointment_date": "2024-01-07", "scheduling_interval": "5", "status": "pending", "age": "30"},
		),
		Slots: Table{Name: TableSlots},
	}}

	records, err := NewBuilder(source).BuildTrainingTable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected only the decided outcome, got %d records", len(records))
	}
	if !records[0].ShowedUp {
		t.Fatal("expected attended status to map to showed_up = true")
	}
}

func TestBuildTrainingTableDeduplicatesKeepFirst(t *testing.T) {
	source := &memorySource{tables: RawTables{
		Patients: patientTable(
			map[string]string{"patient_id": "P-001", "name": "Ada"},
			map[string]string{"patient_id": "P-001", "name": "Duplicate"},
		),
		Appointments: appointmentTable(apptColumns,
			map[string]string{"appointment_id": "A-1", "patient_id": "P-001", "appointment_date": "2024-01-05", "scheduling_interval": "2", "status": "attended", "age": "30"},
			map[string]string{"appointment_id": "A-1", "patient_id": "P-001", "appointment_date": "2024-01-05", "scheduling_interval": "2", "status": "did not attend", "age": "30"},
		),
		Slots: Table{Name: TableSlots},
	}}

	records, err := NewBuilder(source).BuildTrainingTable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected duplicate appointment dropped, got %d records", len(records))
	}
	if !records[0].ShowedUp {
		t.Fatal("expected the first occurrence to win")
	}
}

func TestBuildTrainingTableDedupRunsBeforeStatusFilter(t *testing.T) {
	source := &memorySource{tables: RawTables{
		Patients: patientTable(map[string]string{"patient_id": "P-001", "name": "Ada"}),
		Appointments: appointmentTable(apptColumns,
			map[string]string{"appointment_id": "A-1", "patient_id": "P-001", "appointment_date": "2024-01-05", "scheduling_interval": "2", "status": "cancelled", "age": "30"},
			map[string]string{"appointment_id": "A-1", "patient_id": "P-001", "appointment_date": "2024-01-05", "scheduling_interval": "2", "status": "attended", "age": "30"},
			map[string]string{"appointment_id": "A-2", "patient_id": "P-001", "appointment_date": "2024-02-05", "scheduling_interval": "2", "status": "attended", "age": "30"},
		),
		Slots: Table{Name: TableSlots},
	}}

	records, err := NewBuilder(source).BuildTrainingTable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A-1's first occurrence is cancelled and wins the dedup, so the later
	// attended duplicate must not bring the appointment back.
	if len(records) != 1 {
		t.Fatalf("expected only A-2 to survive, got %d records", len(records))
	}
	if records[0].AttendanceScore != NeutralAttendanceScore {
		t.Fatalf("expected neutral score with no prior decided outcome, got %f", records[0].AttendanceScore)
	}
}

func TestBuildTrainingTableSMSProxy(t *testing.T) {
	source := &memorySource{tables: RawTables{
		Patients: patientTable(map[string]string{"patient_id": "P-001", "name": "Ada"}),
		Appointments: appointmentTable(apptColumns,
			map[string]string{"appointment_id": "A-1", "patient_id": "P-001", "appointment_date": "2024-01-05", "scheduling_interval": "7", "status": "attended", "age": "30"},
			map[string]string{"appointment_id": "A-2", "patient_id": "P-001", "appointment_date": "2024-02-05", "scheduling_interval": "1", "status": "attended", "age": "30"},
		),
		Slots: Table{Name: TableSlots},
	}}

	records, err := NewBuilder(source).BuildTrainingTable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !records[0].SMSReceived {
		t.Fatal("expected 7-day interval to derive sms_received = true")
	}
	if records[1].SMSReceived {
		t.Fatal("expected 1-day interval to derive sms_received = false")
	}
}

func TestBuildTrainingTableFailsOnEmptyTable(t *testing.T) {
	source := &memorySource{tables: RawTables{
		Patients: patientTable(map[string]string{"patient_id": "P-001", "name": "Ada"}),
		Appointments: appointmentTable(apptColumns,
			map[string]string{"appointment_id": "A-1", "patient_id": "P-001", "appointment_date": "2024-01-05", "status": "cancelled", "age": "30"},
		),
		Slots: Table{Name: TableSlots},
	}}

	_, err := NewBuilder(source).BuildTrainingTable()
	if err == nil {
		t.Fatal("expected error when no decided outcomes remain")
	}
	if _, ok := err.(*DataIntegrityError); !ok {
		t.Fatalf("expected DataIntegrityError, got %T", err)
	}
}

func TestCSVSourceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "patients.csv", "Patient_ID , Name\nP-001, Ada \n")
	writeFile(t, dir, "appointments.csv",
		"appointment_id,patient_id,appointment_date,scheduling_interval,status,age\n"+
			"A-1,P-001,2024-01-05,4, Attended ,200\n")
	writeFile(t, dir, "slots.csv", "slot_id,appointment_date,is_available\nS-1,2024-01-05,true\n")

	records, err := NewBuilder(NewCSVSource(dir)).BuildTrainingTable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Age != 120 {
		t.Fatalf("expected age clamped to 120, got %d", records[0].Age)
	}
	if !records[0].ShowedUp {
		t.Fatal("expected whitespace-padded status to normalize to attended")
	}
}

func TestCSVSourceMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "patients.csv", "patient_id,name\nP-001,Ada\n")

	_, err := NewCSVSource(dir).Load()
	if err == nil {
		t.Fatal("expected error for missing appointments.csv")
	}
	if _, ok := err.(*DataIntegrityError); !ok {
		t.Fatalf("expected DataIntegrityError, got %T", err)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}
