package sendkit

import (
	"errors"
	"fmt"
)

// Sentinel causes for the typed errors below. Check for them with errors.Is.
var (
	// ErrNoRecipients means Send was called without at least one primary
	// ("To") recipient. CC and BCC addresses alone aren't enough.
	ErrNoRecipients = errors.New("no primary recipients")

	// ErrInsecurePort means a login was attempted on port 25, which only
	// supports plaintext submission. Use 587 for STARTTLS or 465 for
	// implicit TLS.
	ErrInsecurePort = errors.New("port 25 only supports unencrypted connections")

	// ErrNotRegularFile means an attachment path didn't resolve to a
	// regular file.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrEmptyFile means an attachment file has a size of zero bytes.
	ErrEmptyFile = errors.New("file is empty")

	// ErrAttachmentTooLarge means an attachment would exceed the session's
	// remaining attachment size budget.
	ErrAttachmentTooLarge = errors.New("attachment exceeds the remaining size budget")
)

// ParameterError means a Session was constructed with invalid arguments.
type ParameterError struct {
	Param  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid %v: %v", e.Param, e.Reason)
}

// AddressError means an email address failed validation during login or
// while adding a recipient.
type AddressError struct {
	Address string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("%q is not a valid email address", e.Address)
}

// AttachmentError means a file could not be attached. The underlying cause
// is one of the sentinel errors above or a filesystem error.
type AttachmentError struct {
	Filename string
	Err      error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("cannot attach %q: %v", e.Filename, e.Err)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}

// AuthError means the session could not connect to or authenticate with the
// SMTP endpoint. The session stays UNAUTHENTICATED, so a login with
// corrected credentials can be retried on the same Session.
type AuthError struct {
	Host string
	Port int
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("cannot authenticate with %v:%v: %v", e.Host, e.Port, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// SendError means a message could not be delivered, either because it had
// no recipients or because the transport reported a failure. The session's
// accumulated state is preserved so the caller can correct and resend.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("cannot send message: %v", e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// StateError means an operation was called out of order relative to the
// session lifecycle, e.g. adding a recipient before login or after logout.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %v: session is %v", e.Op, e.State)
}
