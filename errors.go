package decktree

import "errors"

var (
	// ErrUnsupportedFormat is returned for inputs that are not .pptx
	// documents.
	ErrUnsupportedFormat = errors.New("decktree: unsupported document format")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("decktree: invalid configuration")

	// ErrNoDocuments is returned by ConvertAll when the input
	// directory holds no presentation files.
	ErrNoDocuments = errors.New("decktree: no presentation files found")

	// ErrPartitionViolated is returned when the assembled tree fails
	// the section partition invariant (every slide in exactly one
	// section). Indicates a bug, not bad input.
	ErrPartitionViolated = errors.New("decktree: section partition invariant violated")
)
