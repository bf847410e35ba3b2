package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAuthExpired      = fmt.Errorf("credentials expired")

	// Source-side errors
	ErrInvalidReference = fmt.Errorf("invalid playlist reference")
	ErrFetchFailed      = fmt.Errorf("playlist fetch failed")
	ErrEmptyPlaylist    = fmt.Errorf("playlist has no tracks")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Checkpoint errors. ErrCheckpointCorrupt means a record exists but
	// cannot be decoded; it is never folded into the "no checkpoint" case.
	ErrCheckpointCorrupt = fmt.Errorf("checkpoint record unreadable")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
