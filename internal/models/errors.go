package models

import "errors"

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateEvent    = errors.New("event already exists")
	ErrUnknownCommand    = errors.New("unknown command")
)

// VenueError reports a malformed venue definition.
type VenueError struct {
	Reason string
}

func (e *VenueError) Error() string {
	return "invalid venue: " + e.Reason
}

// ErrInvalidVenue builds a VenueError with the given reason.
func ErrInvalidVenue(reason string) error {
	return &VenueError{Reason: reason}
}
