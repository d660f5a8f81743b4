package discover

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("no suitable artwork found after retries")

// ConfigError is a precondition failure. It is never retried.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TransportError aborts a retrieval when the catalog could not be reached
// or answered with a failure status.
type TransportError struct {
	Attempt int
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("catalog request failed on attempt %d: %v", e.Attempt, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NotFoundError reports an exhausted retry budget. It matches ErrNotFound.
type NotFoundError struct {
	Attempts   int
	EmptyPages int
	Rejections map[Reason]int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s (attempts=%d, empty_pages=%d)", ErrNotFound, e.Attempts, e.EmptyPages)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
