package domain

import "errors"

// Sentinel errors shared across the versioning engine. Callers classify
// failures with errors.Is rather than string matching.
var (
	// ErrNotFound marks a missing ontology, version or activity record.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks malformed input rejected before any side effect.
	ErrValidation = errors.New("validation failed")

	// ErrNoSnapshots is returned when a revert target has history but no
	// usable entity snapshots; this usually means change tracking was off,
	// not a legitimately empty graph.
	ErrNoSnapshots = errors.New("no snapshots available to restore")

	// ErrRestoreFailed marks a revert where an entire entity kind restored
	// zero rows despite snapshots being available.
	ErrRestoreFailed = errors.New("restore produced no rows")

	// ErrGraphNotCleared marks a revert whose destructive phase left live
	// rows behind, which indicates a concurrent modification.
	ErrGraphNotCleared = errors.New("live rows remained after graph deletion")
)
