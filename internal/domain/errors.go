package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrAlreadyExists         = errors.New("already exists")
	ErrOutOfOperatingHours   = errors.New("requested time is outside operating hours")
	ErrPastTimeSlot          = errors.New("requested time slot is in the past")
	ErrNoPricingData         = errors.New("no pricing data for requested time")
	ErrSlotNoLongerAvailable = errors.New("slot is no longer available")
	ErrStorage               = errors.New("storage failure")
)

// ValidationError rejects malformed or missing input before any state is
// touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsRule reports whether err is a business outcome rather than an
// infrastructure failure. Rule errors are never retried.
func IsRule(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrOutOfOperatingHours) ||
		errors.Is(err, ErrPastTimeSlot) ||
		errors.Is(err, ErrNoPricingData) ||
		errors.Is(err, ErrSlotNoLongerAvailable)
}
