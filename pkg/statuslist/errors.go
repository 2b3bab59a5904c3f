package statuslist

import "errors"

var (
	// ErrIndexOutOfRange is returned by Get/Set and the package-level
	// GetStatus/SetStatus when index falls outside the status array.
	ErrIndexOutOfRange = errors.New("statuslist: index out of range")

	// ErrInvalidBitWidth is returned when a configured bit width is not
	// one of 1, 2, 4 or 8, or when a status value does not fit in the
	// configured width.
	ErrInvalidBitWidth = errors.New("statuslist: invalid bit width")

	// ErrStatusUnknown is returned by a StatusListStorage implementation
	// when no status list exists for a requested subject.
	ErrStatusUnknown = errors.New("statuslist: unknown status list")

	// ErrConcurrencyConflict is returned by StatusListStorage.TrySave when
	// the supplied ETag no longer matches the stored list.
	ErrConcurrencyConflict = errors.New("statuslist: concurrent modification")
)
