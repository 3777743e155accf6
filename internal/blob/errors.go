package blob

import "errors"

var (
	// ErrNotFound is returned when no record exists for a key.
	ErrNotFound = errors.New("blob: not found")

	// ErrIntegrity is returned when an uploaded payload's checksum does not
	// match the one the caller declared. The offending record has already
	// been deleted by the time this is returned.
	ErrIntegrity = errors.New("blob: integrity check failed")

	// ErrTooLarge is returned when an upload exceeds the engine's configured
	// maximum object size.
	ErrTooLarge = errors.New("blob: object exceeds maximum size")

	// ErrMissingURLOptions is returned when URL generation is attempted
	// without a host to build the URL against.
	ErrMissingURLOptions = errors.New("blob: cannot generate URL without url options (host required)")
)
