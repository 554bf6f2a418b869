package watch

import "errors"

var (
	// ErrInvalidToken means the token address failed local validation.
	// The user should fix the address; retrying the same input won't help.
	ErrInvalidToken = errors.New("invalid token")

	// ErrResolutionFailed means the identity lookup collaborator failed.
	// Recoverable; the user may retry.
	ErrResolutionFailed = errors.New("token resolution failed")

	// ErrFeedUnavailable means the purchase feed could not be established.
	// Recoverable; re-running start retries from scratch.
	ErrFeedUnavailable = errors.New("purchase feed unavailable")

	// ErrAlreadyWatching is returned by Registry.Register when a live
	// watch already holds the key. The manager's start path replaces
	// instead, so callers only see this when registering directly.
	ErrAlreadyWatching = errors.New("already watching")
)
