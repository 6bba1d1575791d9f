// Package repository supplies the analyses with typed tables. A Source
// loads one entity at a time into an immutable dataset; SQLSource reads
// MySQL and MemorySource serves fixtures.
package repository

import (
	"errors"
	"fmt"
)

// ErrUnknownEntity is returned when asked for an entity the schema does
// not declare.
var ErrUnknownEntity = errors.New("unknown entity")

// SourceUnavailableError is returned when a table cannot be produced:
// the connection failed, the query failed, a row could not be scanned, or
// a fixture is missing. Err holds the underlying cause.
type SourceUnavailableError struct {
	Table string
	Err   error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source unavailable: table %q: %v", e.Table, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }
