package booking

import (
	"errors"
	"fmt"
)

// ErrSlotUnavailable is the common outcome of a booking that did not happen.
// ErrSlotInPast and ErrFormatNotAllowed are refinements of it, so callers that
// only show "time already taken" can check for ErrSlotUnavailable alone.
var (
	ErrSlotUnavailable  = errors.New("slot is not available")
	ErrSlotInPast       = fmt.Errorf("%w: slot is in the past", ErrSlotUnavailable)
	ErrFormatNotAllowed = fmt.Errorf("%w: format is not offered for this slot", ErrSlotUnavailable)

	ErrTooLateToCancel  = errors.New("too late to cancel the booking")
	ErrBookingNotActive = errors.New("booking is not active")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
)
