package cnavi

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials means no identifier or secret was available.
	// Fixable by the user with `cnavi config`.
	ErrMissingCredentials = errors.New("cnavi: missing email or password")

	// ErrInvalidCredentials means the portal rendered the login form again
	// after the credentials were posted. The portal answers 200 either way.
	ErrInvalidCredentials = errors.New("cnavi: incorrect email or password")

	// ErrFieldNotFound means a hidden field the replay depends on was absent
	// from a response, the page structure changed or a step is missing.
	ErrFieldNotFound = errors.New("cnavi: field not found")

	// ErrAdHocFields means a click handler no longer has the argument shape
	// the course selection depends on.
	ErrAdHocFields = fmt.Errorf("cnavi: unexpected click handler: %w", ErrFieldNotFound)

	ErrInvalidEncoding = errors.New("cnavi: invalid encoding")

	// ErrTransport is a network failure that persisted after one retry.
	ErrTransport = errors.New("cnavi: transport failure")
)

// FieldError names the field and the step that could not find it.
type FieldError struct {
	Step  string
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("cnavi: %s: field %q not found", e.Step, e.Field)
}

func (e *FieldError) Unwrap() error {
	return ErrFieldNotFound
}
