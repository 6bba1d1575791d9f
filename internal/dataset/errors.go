package dataset

import "fmt"

// SchemaError is returned when an operation references a column that does
// not exist, is ambiguous, or has the wrong kind for the operation.
type SchemaError struct {
	Op     string // operation that rejected the column, e.g. "select"
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset: %s: column %q: %s", e.Op, e.Column, e.Reason)
}

// JoinKeyError is returned when join keys are empty, absent from one side,
// or not comparable between the two sides.
type JoinKeyError struct {
	Key    string
	Reason string
}

func (e *JoinKeyError) Error() string {
	if e.Key == "" {
		return "dataset: join: " + e.Reason
	}
	return fmt.Sprintf("dataset: join: key %q: %s", e.Key, e.Reason)
}

// ValueError is returned when a row holds values an operation cannot
// compute with, such as a duration whose end timestamps are both null.
// Row is -1 when the error is not tied to a single row.
type ValueError struct {
	Op     string
	Row    int
	Column string
	Reason string
}

func (e *ValueError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("dataset: %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("dataset: %s: row %d column %q: %s", e.Op, e.Row, e.Column, e.Reason)
}

// EmptyInputError is returned for malformed grouping or partition key sets.
// Operating on a dataset with zero rows is never an error.
type EmptyInputError struct {
	Op     string
	Reason string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("dataset: %s: %s", e.Op, e.Reason)
}
