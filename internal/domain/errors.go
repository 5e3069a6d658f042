package domain

import "fmt"

// RemoteError reports a failed call to the MARA API: a transport failure
// (Status 0, Err set) or a non-2xx response (Status and Body set).
type RemoteError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mara %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("mara %s: status %d: %s", e.Op, e.Status, e.Body)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// AuthError reports a rejected API key (401/403). It unwraps to the
// underlying RemoteError, so callers matching only RemoteError still see
// the failure.
type AuthError struct {
	Remote *RemoteError
}

func (e *AuthError) Error() string {
	return e.Remote.Error() + " (api key rejected)"
}

func (e *AuthError) Unwrap() error {
	return e.Remote
}
