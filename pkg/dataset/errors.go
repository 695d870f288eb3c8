package dataset

import "fmt"

// DataIntegrityError reports a source table that is missing, unreadable, or
// empty after cleaning. It fails the build; optional-column substitutions are
// logged as warnings instead.
type DataIntegrityError struct {
	Table  string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: %s: %s", e.Table, e.Reason)
}

func integrityError(table, format string, args ...interface{}) *DataIntegrityError {
	return &DataIntegrityError{Table: table, Reason: fmt.Sprintf(format, args...)}
}
