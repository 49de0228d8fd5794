package core

import (
	"errors"
	"fmt"
)

// Error kinds for the whole service. Concrete failures wrap one of these
// sentinels so callers can classify with errors.Is while the message still
// names the actual problem ("donation amount must be greater than zero",
// never a bare code).
var (
	ErrValidation      = errors.New("validation failed")
	ErrAuthentication  = errors.New("authentication required")
	ErrAuthorization   = errors.New("not authorized")
	ErrPersistence     = errors.New("storage transaction failed")
	ErrExternalService = errors.New("external service failed")

	ErrNotFound = errors.New("not found")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Authenticationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthentication, fmt.Sprintf(format, args...))
}

func Authorizationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}

// Persistencef wraps a storage failure. The underlying error is carried in
// the message only; the caller-visible identity is ErrPersistence.
func Persistencef(err error, format string, args ...any) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPersistence, fmt.Sprintf(format, args...), err)
	}
	return fmt.Errorf("%w: %s", ErrPersistence, fmt.Sprintf(format, args...))
}

func ExternalServicef(err error, format string, args ...any) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExternalService, fmt.Sprintf(format, args...), err)
	}
	return fmt.Errorf("%w: %s", ErrExternalService, fmt.Sprintf(format, args...))
}
