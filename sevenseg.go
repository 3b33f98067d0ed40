package tdm

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Segment bits as returned by Segments, A in the most significant bit.
const (
	SegA  uint8 = 0x80
	SegB  uint8 = 0x40
	SegC  uint8 = 0x20
	SegD  uint8 = 0x10
	SegE  uint8 = 0x08
	SegF  uint8 = 0x04
	SegG  uint8 = 0x02
	SegDP uint8 = 0x01
)

// segmentBits is the bit for each segment line, in line order A..G, DP.
var segmentBits = [8]uint8{SegA, SegB, SegC, SegD, SegE, SegF, SegG, SegDP}

// digitFont holds the segments for 0-9.
var digitFont = [10]uint8{
	//ABCDEFG.
	0b11111100, // 0
	0b01100000, // 1
	0b11011010, // 2
	0b11110010, // 3
	0b01100110, // 4
	0b10110110, // 5
	0b10111110, // 6
	0b11100000, // 7
	0b11111110, // 8
	0b11110110, // 9
}

// Segments returns the segments that draw digit d. Anything outside 0-9 is
// blank.
func Segments(d int) uint8 {
	if d < 0 || d > 9 {
		return 0
	}
	return digitFont[d]
}

// Each slot of a seven-segment frame holds the digit value in the low seven
// bits and the decimal point in the top bit.
const (
	dotBit = 0x80

	// BlankDigit is stored for digits set to anything outside 0-9.
	BlankDigit = 0x0f
)

// SevenSegment drives a multiplexed seven-segment display: eight shared
// segment lines (A..G, DP) and one enable line per digit. Digit 0 is the
// least significant (rightmost) position.
type SevenSegment struct {
	// Line polarity, for common-anode displays or inverting drivers. The
	// defaults suit common-cathode digits with active-high digit enables.
	// Set before the engine starts.
	SegmentActiveLow bool
	DigitActiveLow   bool

	// BlankLeadingZeros suppresses zeros to the left of the most significant
	// non-zero digit. Set before the engine starts.
	BlankLeadingZeros bool

	segments [8]Pin
	digits   []Pin
	state    *State
}

// NewSevenSegment returns a renderer for the given segment lines (A..G, DP)
// and digit enable lines, displaying s, which must have one slot per digit.
func NewSevenSegment(segments [8]Pin, digits []Pin, s *State) (*SevenSegment, error) {
	for i, p := range segments {
		if p == nil {
			return nil, fmt.Errorf("%w: segment line %d missing", ErrPins, i)
		}
	}
	if len(digits) < 1 || len(digits) > MaxSlots {
		return nil, fmt.Errorf("%w: %d digits", ErrSlots, len(digits))
	}
	for i, p := range digits {
		if p == nil {
			return nil, fmt.Errorf("%w: digit line %d missing", ErrPins, i)
		}
	}
	if s == nil || s.Slots() != len(digits) {
		return nil, fmt.Errorf("%w: seven-segment display needs a %d-slot state", ErrSlots, len(digits))
	}
	return &SevenSegment{
		segments: segments,
		digits:   append([]Pin(nil), digits...),
		state:    s,
	}, nil
}

// State returns the state being displayed.
func (d *SevenSegment) State() *State { return d.state }

// Slots implements Renderer.
func (d *SevenSegment) Slots() int { return len(d.digits) }

// Render implements Renderer. All segment lines are cleared before the
// digit enables change, so the previous digit's segments never show on the
// new digit.
func (d *SevenSegment) Render(slot int, f Frame) error {
	var err error
	keep := func(e error) {
		if e != nil && err == nil {
			err = e
		}
	}
	mask := d.slotSegments(slot, f)
	for _, p := range d.segments {
		keep(p.Out(level(false, d.SegmentActiveLow)))
	}
	for i, p := range d.digits {
		if i != slot || mask == 0 {
			keep(p.Out(level(false, d.DigitActiveLow)))
		}
	}
	if mask == 0 {
		return err
	}
	keep(d.digits[slot].Out(level(true, d.DigitActiveLow)))
	for i, p := range d.segments {
		if mask&segmentBits[i] != 0 {
			keep(p.Out(level(true, d.SegmentActiveLow)))
		}
	}
	return err
}

// Blank implements Renderer.
func (d *SevenSegment) Blank() error {
	return d.Render(0, 0)
}

func (d *SevenSegment) slotSegments(slot int, f Frame) uint8 {
	b := f.Slot(slot)
	mask := Segments(int(b &^ dotBit))
	if d.BlankLeadingZeros && d.leadingZero(slot, f) {
		mask = 0
	}
	if b&dotBit != 0 {
		mask |= SegDP
	}
	return mask
}

// leadingZero reports whether slot and every more significant slot hold
// zero or blank, with no decimal point set among them.
func (d *SevenSegment) leadingZero(slot int, f Frame) bool {
	if slot == 0 {
		return false
	}
	for j := len(d.digits) - 1; j >= slot; j-- {
		b := f.Slot(j)
		if b&dotBit != 0 {
			return false
		}
		if v := b &^ dotBit; v >= 1 && v <= 9 {
			return false
		}
	}
	return true
}

func level(on, activeLow bool) gpio.Level {
	return gpio.Level(on != activeLow)
}

// SetDigitValue sets the digit shown at pos, keeping its decimal point.
// Values outside 0-9 show as blank. Positions out of range are ignored.
func (d *SevenSegment) SetDigitValue(pos, value int) {
	if pos < 0 || pos >= len(d.digits) {
		return
	}
	v := digitByte(value)
	d.state.Update(func(f Frame) Frame {
		return f.WithSlot(pos, f.Slot(pos)&dotBit|v)
	})
}

// SetDecimalPoint turns the decimal point at pos on or off.
func (d *SevenSegment) SetDecimalPoint(pos int, on bool) {
	if pos < 0 || pos >= len(d.digits) {
		return
	}
	d.state.Update(func(f Frame) Frame {
		b := f.Slot(pos) &^ dotBit
		if on {
			b |= dotBit
		}
		return f.WithSlot(pos, b)
	})
}

// Digits returns the digit values, least significant first. Blank digits
// are reported as BlankDigit.
func (d *SevenSegment) Digits() []int {
	f := d.state.Load()
	v := make([]int, len(d.digits))
	for i := range v {
		v[i] = int(f.Slot(i) &^ dotBit)
	}
	return v
}

// DecimalPoints returns which decimal points are lit, least significant
// first.
func (d *SevenSegment) DecimalPoints() []bool {
	f := d.state.Load()
	v := make([]bool, len(d.digits))
	for i := range v {
		v[i] = f.Slot(i)&dotBit != 0
	}
	return v
}

// Increment adds one to the displayed number, carrying into more
// significant digits and wrapping to zero after all nines. A blank digit
// counts as zero. The whole carry is published at once, so a tick never
// sees it half done.
func (d *SevenSegment) Increment() {
	n := len(d.digits)
	d.state.Update(func(f Frame) Frame {
		for i := 0; i < n; i++ {
			b := f.Slot(i)
			v := b &^ dotBit
			if v > 9 {
				v = 0
			}
			v++
			if v < 10 {
				return f.WithSlot(i, b&dotBit|v)
			}
			f = f.WithSlot(i, b&dotBit)
		}
		return f
	})
}

// Display shows s right-aligned. Digits 0-9 show as themselves, a '.'
// lights the decimal point of the digit before it, and any other rune is a
// blank digit. Characters beyond the width of the display are dropped from
// the left.
func (d *SevenSegment) Display(s string) {
	var cells []uint8
	for _, r := range s {
		if r == '.' {
			if len(cells) == 0 {
				cells = append(cells, BlankDigit)
			}
			cells[len(cells)-1] |= dotBit
			continue
		}
		if r >= '0' && r <= '9' {
			cells = append(cells, uint8(r-'0'))
		} else {
			cells = append(cells, BlankDigit)
		}
	}
	var f Frame
	for i := 0; i < len(d.digits); i++ {
		b := uint8(BlankDigit)
		if j := len(cells) - 1 - i; j >= 0 {
			b = cells[j]
		}
		f = f.WithSlot(i, b)
	}
	d.state.Store(f)
}

// Count increments the display once per step until ctx is done.
func (d *SevenSegment) Count(ctx context.Context, step time.Duration) {
	t := time.NewTicker(step)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			d.Increment()
		case <-ctx.Done():
			return
		}
	}
}

func digitByte(value int) uint8 {
	if value < 0 || value > 9 {
		return BlankDigit
	}
	return uint8(value)
}
