package workflow

import "errors"

// Fatal conditions. They propagate to main and end the run with a non-zero exit.
// Constraint violations, referential gaps and failed batches are not errors at
// this level; they are counted in the Tally.
var (
	ErrConnection        = errors.New("store unreachable")
	ErrEmptyPrerequisite = errors.New("prerequisite data missing")
	ErrRunLocked         = errors.New("another order synthesizer holds the run lock")
)
