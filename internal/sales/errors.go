package sales

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no record has the given ID.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateSerial is returned when a serial number is already used by a sale.
	ErrDuplicateSerial = errors.New("serial number already exists for a sale")

	// ErrUnknownSerial is returned when a repair references a serial with no sale.
	ErrUnknownSerial = errors.New("serial number does not exist in sales")

	// ErrMissingRequiredField is returned when an imported row lacks a required field.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrDuplicateInImport is returned when a serial appears twice in one imported batch.
	ErrDuplicateInImport = errors.New("duplicate serial number in import")

	// ErrRestoreDeclined is returned when the operator refuses to overwrite existing sales.
	ErrRestoreDeclined = errors.New("restore declined")

	// ErrStorage wraps persistence read and write failures.
	ErrStorage = errors.New("storage error")

	// ErrCodec is returned for malformed import files.
	ErrCodec = errors.New("malformed import file")
)

// ConflictError lists the serial numbers that blocked a batch operation.
type ConflictError struct {
	Serials []string
	Err     error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, strings.Join(e.Serials, ", "))
}

func (e *ConflictError) Unwrap() error { return e.Err }

// RowError is a failure on one row of an imported batch.
type RowError struct {
	Line   int
	Serial string
	Err    error
}

func (e RowError) Error() string {
	if e.Serial != "" {
		return fmt.Sprintf("line %d (%s): %v", e.Line, e.Serial, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// ImportError collects every row failure of a rejected import.
type ImportError struct {
	Rows []RowError
}

func (e *ImportError) Error() string {
	if len(e.Rows) == 1 {
		return "import rejected: " + e.Rows[0].Error()
	}
	return fmt.Sprintf("import rejected: %d row errors", len(e.Rows))
}

// Unwrap exposes each row error to errors.Is and errors.As.
func (e *ImportError) Unwrap() []error {
	errs := make([]error, len(e.Rows))
	for i, r := range e.Rows {
		errs[i] = r
	}
	return errs
}
