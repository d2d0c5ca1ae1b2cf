package service

import (
	"errors"
	"fmt"

	"github.com/shinyyama/closet-market/internal/repository"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrExternalProvider    = errors.New("external provider error")
	ErrAlreadyRated        = errors.New("already rated")
	ErrListingUnavailable  = errors.New("listing unavailable")
	ErrListingCommitted    = errors.New("listing committed elsewhere")
	ErrSwapExpired         = fmt.Errorf("%w: swap request has expired", ErrInvalidTransition)
	ErrUnavailable         = errors.New("service unavailable")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func transitionError(entity string, from, to any) error {
	return fmt.Errorf("%w: %s cannot move from %v to %v", ErrInvalidTransition, entity, from, to)
}

// fromRepo maps storage errors onto the service taxonomy.
func fromRepo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDBNotReady):
		return ErrUnavailable
	}
	return err
}
