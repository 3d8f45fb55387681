package domain

import "errors"

// Failure classes for a single bulletin. Each is recovered by skipping the
// bulletin; none aborts a batch. A duplicate record is not a failure.
var (
	// ErrParse marks an observation whose required fields are absent or malformed.
	ErrParse = errors.New("parse failure")

	// ErrResolution marks an observation that could not be tied to an ATCF ID.
	ErrResolution = errors.New("no ATCF match")

	// ErrStoreCorruption marks an unreadable line in an existing track file.
	ErrStoreCorruption = errors.New("store corruption")

	// ErrPersist marks an I/O failure while rewriting a track file.
	ErrPersist = errors.New("persist failure")
)
