package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services unwraps to one of these
// so the transport layer can map it without knowing the specific cause.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)

var (
	ErrEventNotFound         = kindErr(ErrNotFound, "event not found")
	ErrUserNotFound          = kindErr(ErrNotFound, "user not found")
	ErrUsersNotFound         = kindErr(ErrNotFound, "one or more users not found")
	ErrParticipationNotFound = kindErr(ErrNotFound, "participation not found")
	ErrPollNotFound          = kindErr(ErrNotFound, "poll not found")
	ErrOptionNotFound        = kindErr(ErrNotFound, "option not found")

	ErrAlreadyJoined    = kindErr(ErrConflict, "user already joined this event")
	ErrEventFull        = kindErr(ErrConflict, "event is full")
	ErrCapacityExceeded = kindErr(ErrConflict, "participant count would exceed event capacity")
	ErrCapacityTooLow   = kindErr(ErrConflict, "capacity is below the current participant count")
	ErrEventNotUpcoming = kindErr(ErrConflict, "event is not open for registration")
	ErrEventStarted     = kindErr(ErrConflict, "event has already started or ended")
	ErrEventCancelled   = kindErr(ErrConflict, "event is cancelled")
	ErrAlreadyCheckedIn = kindErr(ErrConflict, "participant already checked in")
	ErrPollClosed       = kindErr(ErrConflict, "poll is closed")
	ErrEmailTaken       = kindErr(ErrConflict, "email is already used by another account")

	ErrInsufficientRole = kindErr(ErrForbidden, "insufficient role for this event")
)

type kindError struct {
	kind error
	msg  string
}

func kindErr(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Unwrap() error {
	return e.kind
}

// Invalidf builds a validation error with a formatted message.
func Invalidf(format string, args ...any) error {
	return kindErr(ErrValidation, fmt.Sprintf(format, args...))
}

// Reason returns the message of the specific domain error wrapped in err,
// without the call chain added by the layers above it.
func Reason(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}

	return err.Error()
}
