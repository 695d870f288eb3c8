package trainer

import "fmt"

// InsufficientDataError reports a table too small or too one-sided to split
// and train on.
type InsufficientDataError struct {
	Rows   int
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient training data (%d rows): %s", e.Rows, e.Reason)
}
