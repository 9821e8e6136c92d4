package adoption

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrBusy         = errors.New("user or pet already has an adoption in this period")
	ErrDelivery     = errors.New("adopter could not be notified")
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownShelter is a NotFound for species outside the supported set
	// or a user without a shelter affiliation.
	ErrUnknownShelter = fmt.Errorf("%w: shelter", ErrNotFound)
)
