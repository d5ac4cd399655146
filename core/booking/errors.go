package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is returned when a request asks for more than is available.
	ErrCapacityExceeded = errors.New("insufficient license capacity")
	// ErrUnknownFeature is returned when a request names a feature the ledger does not track.
	ErrUnknownFeature = errors.New("unknown feature")
	// ErrDuplicateJob is returned when a job already holds bookings.
	ErrDuplicateJob = errors.New("job already holds bookings")
	// ErrInvalidRequest is returned for empty requests and non-positive quantities.
	ErrInvalidRequest = errors.New("invalid booking request")
)

// CapacityError carries the numbers behind an ErrCapacityExceeded.
type CapacityError struct {
	Feature   string
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: requested %d, available %d: %s", e.Feature, e.Requested, e.Available, ErrCapacityExceeded)
}

// Is lets errors.Is(err, ErrCapacityExceeded) match.
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}
