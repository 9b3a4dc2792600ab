package usecase

import (
	"errors"
	"fmt"

	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/tenant"
)

var (
	// ErrAuth rejects a handshake or request; the connection is terminated.
	ErrAuth              = errors.New("authentication failed")
	ErrMissingCredential = fmt.Errorf("%w: missing credential", ErrAuth)
	ErrInvalidCredential = fmt.Errorf("%w: invalid credential", ErrAuth)

	// ErrValidation indicates a malformed request. The connection stays open.
	ErrValidation = errors.New("validation failed")

	// ErrAuthorization indicates a failed membership or ownership check.
	ErrAuthorization = errors.New("not authorized")

	// ErrPersistence indicates an infrastructure/repository failure inside a use case
	ErrPersistence = errors.New("chat use case persistence error")

	// ErrResolution is the tenant resolver's sentinel, re-exported for callers
	// that only import use cases.
	ErrResolution = tenant.ErrResolution
)

func validation(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func persistence(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
