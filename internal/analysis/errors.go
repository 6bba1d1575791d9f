package analysis

import (
	"errors"
	"fmt"

	"github.com/iliyamo/rental-analytics/internal/model"
)

// ErrUnknownAnalysis is returned when no analysis is registered under the
// requested name.
var ErrUnknownAnalysis = errors.New("unknown analysis")

// errNotLoaded is wrapped when a pipeline reads an entity missing from the
// catalog.
var errNotLoaded = errors.New("table not loaded")

// errInconsistent is wrapped when two formulations of one analysis disagree.
var errInconsistent = errors.New("left and right join forms disagree")

// StageError reports the analysis, pipeline stage and entity at which a
// run failed. Err is the engine or source error underneath.
type StageError struct {
	Analysis string
	Stage    string // load, join, filter, aggregate, derive, rank, sort, select, consistency
	Entity   model.Entity
	Err      error
}

func (e *StageError) Error() string {
	name := e.Analysis
	if name == "" {
		name = "catalog"
	}
	if e.Entity == "" {
		return fmt.Sprintf("analysis %s: %s: %v", name, e.Stage, e.Err)
	}
	return fmt.Sprintf("analysis %s: %s %s: %v", name, e.Stage, e.Entity, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
