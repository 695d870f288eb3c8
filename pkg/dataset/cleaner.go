package dataset

import (
	"strconv"
	"strings"
	"time"

	"github.com/health-sphere/noshow-platform/pkg/common/logger"
)

const (
	statusAttended = "attended"
	statusMissed   = "did not attend"

	// Appointments scheduled at least this many days ahead are assumed to
	// have received an SMS reminder when the source has no sms column.
	smsProxyIntervalDays = 3

	maxAge = 120
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

type patientRow struct {
	PatientID string
	Name      string
}

type appointmentRow struct {
	AppointmentID      string
	PatientID          string
	Date               time.Time
	Age                int
	SchedulingInterval int
	SMSReceived        bool
	ShowedUp           bool
}

// cleanPatients drops rows missing patient_id or name and deduplicates on
// patient_id, keeping the first occurrence in input order.
func cleanPatients(t Table) []patientRow {
	seen := make(map[string]struct{})
	var out []patientRow
	for _, row := range t.Rows {
		id := row["patient_id"]
		name := row["name"]
		if id == "" || name == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, patientRow{PatientID: id, Name: name})
	}
	return out
}

// cleanAppointments reduces the raw appointments table to rows with a decided
// outcome. Returns the cleaned rows and whether sms_received was synthesized
// from the scheduling interval rather than observed.
func cleanAppointments(t Table) ([]appointmentRow, bool) {
	hasSMSColumn := t.HasColumn("sms_received")
	smsProxied := false
	if !hasSMSColumn {
		smsProxied = true
		logger.Log.WithField("table", t.Name).Warn(
			"sms_received column absent; deriving from scheduling_interval (best-effort proxy)")
	}

	seen := make(map[string]struct{})
	var out []appointmentRow
	for _, row := range t.Rows {
		patientID := row["patient_id"]
		if patientID == "" {
			continue
		}

		date, ok := parseDate(row["appointment_date"])
		if !ok {
			continue
		}

		age, err := strconv.Atoi(row["age"])
		if err != nil {
			continue
		}
		age = clampAge(age)

		// Deduplicate on appointment_id before the status restriction and
		// keep the first occurrence: a later decided duplicate must not
		// resurrect an appointment whose first record was undecided.
		appointmentID := row["appointment_id"]
		if appointmentID != "" {
			if _, dup := seen[appointmentID]; dup {
				continue
			}
			seen[appointmentID] = struct{}{}
		}

		status := strings.ToLower(strings.TrimSpace(row["status"]))
		var showedUp bool
		switch status {
		case statusAttended:
			showedUp = true
		case statusMissed:
			showedUp = false
		default:
			// cancelled, pending, unknown: no decided outcome
			continue
		}

		interval := schedulingInterval(row, date)

		sms := false
		if hasSMSColumn {
			sms = parseBool(row["sms_received"])
		} else {
			sms = interval >= smsProxyIntervalDays
		}

		out = append(out, appointmentRow{
			AppointmentID:      appointmentID,
			PatientID:          patientID,
			Date:               date,
			Age:                age,
			SchedulingInterval: interval,
			SMSReceived:        sms,
			ShowedUp:           showedUp,
		})
	}
	return out, smsProxied
}

func schedulingInterval(row map[string]string, appointmentDate time.Time) int {
	if raw, ok := row["scheduling_interval"]; ok && raw != "" {
		if interval, err := strconv.Atoi(raw); err == nil && interval >= 0 {
			return interval
		}
	}
	if scheduled, ok := parseDate(row["scheduling_date"]); ok {
		days := int(appointmentDate.Sub(scheduled).Hours() / 24)
		if days > 0 {
			return days
		}
	}
	return 0
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}

func clampAge(age int) int {
	if age < 0 {
		return 0
	}
	if age > maxAge {
		return maxAge
	}
	return age
}
