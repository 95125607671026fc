package crawler

import "fmt"

// AuthError means the login handshake failed. Fatal to the run: nothing
// downstream can proceed without an authenticated session.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError is a non-2xx status or transport failure on a fetch,
// download or upload. It always carries the URL it refers to.
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: network error", e.URL)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError means structural markup assumptions were violated.
type ParseError struct {
	URL     string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Message)
}

// PersistenceError is a remote-store failure, carrying the operation name.
type PersistenceError struct {
	Op      string
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("persist %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("persist %s: %s", e.Op, e.Message)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
