package reporter

import "errors"

var (
	// ErrInvalidConfig is returned by New when the reporter settings cannot work.
	ErrInvalidConfig = errors.New("reporter: invalid config")

	// ErrRequestFailed is returned by Report when dweet.io could not be reached.
	ErrRequestFailed = errors.New("reporter: request failed")
)
