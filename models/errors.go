package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a tracked item id does not exist.
	ErrNotFound = errors.New("tracked item not found")

	// ErrStoreUnavailable marks an unreadable or corrupt store. Callers treat it as an empty store.
	ErrStoreUnavailable = errors.New("tracking store unavailable")

	// ErrBlocked marks a fetch rejected by the retailer's anti-bot protection.
	ErrBlocked = errors.New("automated access blocked")

	// ErrNoPrice is returned to interactive callers when no price could be extracted.
	ErrNoPrice = errors.New("no price could be extracted")
)

// NetworkError is a transport-level fetch failure, including unexpected HTTP statuses.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
