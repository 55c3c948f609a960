package probe

import (
	"errors"
	"strings"
)

type State int

const (
	StateStart State = iota
	StateNavigated
	StateFrameLocated
	StateFieldsVerified
	StatePass
	StateFail
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateNavigated:
		return "navigated"
	case StateFrameLocated:
		return "frame_located"
	case StateFieldsVerified:
		return "fields_verified"
	case StatePass:
		return "pass"
	case StateFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Verification is the result of the check sequence: StatePass, or StateFail
// with the error that ended it.
type Verification struct {
	State State
	Err   error
}

var ErrMissingFields = errors.New("missing form inputs")

// MissingFieldsError lists the fields the final re-check could not find.
type MissingFieldsError struct {
	Names []string
}

func (e *MissingFieldsError) Error() string {
	return "Missing form inputs: " + strings.Join(e.Names, ", ")
}

func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrMissingFields
}
