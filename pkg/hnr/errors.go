package hnr

import (
	"errors"
	"fmt"
)

// ErrConnectionFailure is matched by every error returned from a remote
// lookup: transport failures, non-success responses and malformed payloads.
var ErrConnectionFailure = errors.New("connection failure")

// ConnectionError reports the failure of one lookup batch.
type ConnectionError struct {
	Err error
	// Batch is the zero-based index of the failed batch.
	Batch int
	Size  int
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%v: batch %d (%d torrents): %v", ErrConnectionFailure, e.Batch, e.Size, e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	return []error{ErrConnectionFailure, e.Err}
}

// StatusError is a non-200 response from the remote API.
type StatusError struct {
	Body string
	Code int
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}

	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
