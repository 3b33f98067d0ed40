package tdm

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// CharlieplexLEDs is the number of LEDs three charlieplexed lines can drive.
const CharlieplexLEDs = 6

// charlieDrive is the line assignment that lights one LED: high is the
// anode line, low the cathode line, and float the third line, which must be
// high-impedance so that no other LED conducts.
type charlieDrive struct {
	high, low, float int
}

// charlieTable maps LED index to line assignment. Each ordered pair of the
// three lines appears exactly once.
var charlieTable = [CharlieplexLEDs]charlieDrive{
	0: {high: 1, low: 2, float: 0},
	1: {high: 2, low: 1, float: 0},
	2: {high: 2, low: 0, float: 1},
	3: {high: 0, low: 1, float: 2},
	4: {high: 1, low: 0, float: 2},
	5: {high: 0, low: 2, float: 1},
}

// Charlieplex drives six LEDs from three lines. Each tick lights at most one
// LED; lines not taking part are left high-impedance.
type Charlieplex struct {
	pins  [3]Pin
	state *State
}

// NewCharlieplex returns a renderer for the LEDs wired to pins, displaying s,
// which must have six slots.
func NewCharlieplex(pins [3]Pin, s *State) (*Charlieplex, error) {
	for i, p := range pins {
		if p == nil {
			return nil, fmt.Errorf("%w: charlieplex line %d missing", ErrPins, i)
		}
	}
	if s == nil || s.Slots() != CharlieplexLEDs {
		return nil, fmt.Errorf("%w: charlieplex needs a %d-slot state", ErrSlots, CharlieplexLEDs)
	}
	return &Charlieplex{pins: pins, state: s}, nil
}

// State returns the state being displayed.
func (c *Charlieplex) State() *State { return c.state }

// Slots implements Renderer.
func (c *Charlieplex) Slots() int { return CharlieplexLEDs }

// Render implements Renderer.
func (c *Charlieplex) Render(slot int, f Frame) error {
	if f == 0 || f.Slot(slot) == 0 {
		return c.Blank()
	}
	d := &charlieTable[slot]
	// Float first, then sink, then source: until the last step only the
	// target LED can conduct.
	err1 := float(c.pins[d.float])
	err2 := c.pins[d.low].Out(gpio.Low)
	err3 := c.pins[d.high].Out(gpio.High)
	if err1 != nil {
		return err1
	}
	if err2 != nil {
		return err2
	}
	return err3
}

// Blank implements Renderer. All three lines go high-impedance.
func (c *Charlieplex) Blank() error {
	var first error
	for _, p := range c.pins {
		if err := float(p); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SetSlotPattern turns one LED on or off. Other slots are unchanged.
func (c *Charlieplex) SetSlotPattern(slot int, on bool) {
	var b uint8
	if on {
		b = 1
	}
	c.state.SetSlot(slot, b)
}

// SetPattern sets all six LEDs from the low six bits of mask (bit i is
// LED i).
func (c *Charlieplex) SetPattern(mask uint8) {
	var f Frame
	for i := 0; i < CharlieplexLEDs; i++ {
		if mask&(1<<i) != 0 {
			f = f.WithSlot(i, 1)
		}
	}
	c.state.Store(f)
}

// Pattern returns the LEDs currently set, as a bitmask.
func (c *Charlieplex) Pattern() uint8 {
	f := c.state.Load()
	var mask uint8
	for i := 0; i < CharlieplexLEDs; i++ {
		if f.Slot(i) != 0 {
			mask |= 1 << i
		}
	}
	return mask
}

// RotatePattern rotates a six-LED mask one place towards LED 5, wrapping
// LED 5 round to LED 0.
func RotatePattern(mask uint8) uint8 {
	return (mask<<1 | mask>>5&1) & 0x3f
}

// charlieDemo is the animation Demo plays, one pattern per step: a single
// LED chases round and back to the start, then the LEDs fill up and drain
// away.
var charlieDemo = []uint8{
	0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x01, // chase
	0x03, 0x07, 0x0f, 0x1f, 0x3f, // fill
	0x3e, 0x3c, 0x38, 0x30, 0x20, 0x00, // drain
}

// Demo plays a chase, fill, and drain animation, one pattern per step,
// until ctx is done.
func (c *Charlieplex) Demo(ctx context.Context, step time.Duration) {
	t := time.NewTicker(step)
	defer t.Stop()
	for {
		for _, v := range charlieDemo {
			c.SetPattern(v)
			select {
			case <-t.C:
			case <-ctx.Done():
				return
			}
		}
	}
}
