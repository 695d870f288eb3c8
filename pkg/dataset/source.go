package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/health-sphere/noshow-platform/pkg/common/logger"
)

const (
	TablePatients     = "patients"
	TableAppointments = "appointments"
	TableSlots        = "slots"
)

// Table is a raw tabular source: normalized lower-case column names and one
// string map per row. Row order is the input order.
type Table struct {
	Name    string
	Columns []string
	Rows    []map[string]string
}

func (t Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// RawTables bundles the three baseline source tables.
type RawTables struct {
	Patients     Table
	Appointments Table
	Slots        Table
}

// Source yields the raw baseline tables, whatever their physical origin.
type Source interface {
	Load() (RawTables, error)
}

// CSVSource reads patients.csv, appointments.csv and slots.csv from a
// directory.
type CSVSource struct {
	dir string
}

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

func (s *CSVSource) Load() (RawTables, error) {
	patients, err := s.readTable(TablePatients)
	if err != nil {
		return RawTables{}, err
	}
	appointments, err := s.readTable(TableAppointments)
	if err != nil {
		return RawTables{}, err
	}
	slots, err := s.readTable(TableSlots)
	if err != nil {
		return RawTables{}, err
	}
	return RawTables{Patients: patients, Appointments: appointments, Slots: slots}, nil
}

func (s *CSVSource) readTable(name string) (Table, error) {
	path := filepath.Join(s.dir, name+".csv")
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Table{}, integrityError(name, "cannot open %s: %v", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, integrityError(name, "cannot parse %s: %v", path, err)
	}
	if len(records) == 0 {
		return Table{}, integrityError(name, "file %s is empty", path)
	}

	columns := make([]string, len(records[0]))
	for i, col := range records[0] {
		columns[i] = strings.ToLower(strings.TrimSpace(col))
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}

	logger.Log.WithFields(map[string]interface{}{
		"table": name,
		"rows":  len(rows),
	}).Debug("Loaded raw table")

	return Table{Name: name, Columns: columns, Rows: rows}, nil
}
