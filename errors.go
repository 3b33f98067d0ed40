package tdm

import "errors"

// Configuration errors. They are returned (wrapped) during setup, never
// from the refresh path.
var (
	ErrSlots   = errors.New("tdm: invalid slot count")
	ErrPeriod  = errors.New("tdm: invalid refresh period")
	ErrPins    = errors.New("tdm: invalid pin assignment")
	ErrBackend = errors.New("tdm: unknown pin backend")
)
