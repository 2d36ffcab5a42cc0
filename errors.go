package pgrtk

import "github.com/pkg/errors"

// Sentinel error kinds for conditions that are surfaced to a caller: I/O,
// malformed on-disk data, and fragment groups that are corrupt or fail to
// decompress. An unknown sequence id passed to the fragment store is
// treated as an internal invariant breach and panics instead of returning
// an error.
var (
	ErrCorruptFormat  = errors.New("pgrtk: corrupt or unsupported on-disk format")
	ErrSpecMismatch   = errors.New("pgrtk: minimizer spec mismatch between index and query")
	ErrUnknownSeqID   = errors.New("pgrtk: unknown sequence id")
	ErrGroupSealed    = errors.New("pgrtk: fragment group is sealed and rejects inserts")
	ErrEmptyAdjList    = errors.New("pgrtk: adjacency list is empty")
)

// wrapf wraps err with a pgrtk-specific message, preserving the call stack.
// Used at I/O and on-disk-format boundaries per the error-handling policy.
func wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}
