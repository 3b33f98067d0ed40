package tdm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stianeikeland/go-rpio/v4"
	"periph.io/x/conn/v3/gpio"
)

// rpioPin adapts a go-rpio BCM pin.
type rpioPin rpio.Pin

func (p rpioPin) String() string { return fmt.Sprintf("rpio:GPIO%d", uint8(p)) }

func (p rpioPin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return fmt.Errorf("%s: edge detection unsupported", p)
	}
	pin := rpio.Pin(p)
	pin.Input()
	switch pull {
	case gpio.PullUp:
		pin.PullUp()
	case gpio.PullDown:
		pin.PullDown()
	case gpio.Float:
		pin.PullOff()
	}
	return nil
}

func (p rpioPin) Out(l gpio.Level) error {
	pin := rpio.Pin(p)
	// Latch the level first so the line never glitches to a stale value.
	if l {
		pin.Write(rpio.High)
	} else {
		pin.Write(rpio.Low)
	}
	pin.Output()
	return nil
}

// RPIOPins maps the Raspberry Pi GPIO registers with go-rpio and returns an
// opener for BCM pin numbers ("17" or "GPIO17"), along with a function that
// unmaps the registers again.
func RPIOPins() (PinOpener, func() error, error) {
	if err := rpio.Open(); err != nil {
		return nil, nil, fmt.Errorf("failed to open rpio: %w", err)
	}
	open := func(name string) (Pin, error) {
		n, err := strconv.ParseUint(strings.TrimPrefix(strings.ToUpper(name), "GPIO"), 10, 8)
		if err != nil || n > 53 {
			return nil, fmt.Errorf("%w: bad BCM pin %q", ErrPins, name)
		}
		return rpioPin(n), nil
	}
	return open, rpio.Close, nil
}
