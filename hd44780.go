package tdm

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

var sleep = time.Sleep

// HD44780 implements a write-only driver for an HD44780-compatible character
// LCD in 4-bit mode. Only D4-D7 are connected and R/W is tied to ground, so
// the busy flag cannot be read; each instruction waits out its worst-case
// execution time instead.
type HD44780 struct {
	RS, E Pin    // register select, enable signal
	DB    [4]Pin // data bits 4 - 7
}

// DDRAM addresses of the start of each line on a two line display.
var lineAddress = [2]uint8{0x00, 0x40}

// Init waits for the module to power up, makes every line an output, and
// switches the controller into 4-bit, two line, 5x10 font mode with the
// display on and the cursor off.
func (h *HD44780) Init() error {
	for i, p := range append([]Pin{h.RS, h.E}, h.DB[:]...) {
		if p == nil {
			return fmt.Errorf("%w: lcd line %d missing", ErrPins, i)
		}
	}
	sleep(50 * time.Millisecond) // > 40ms after Vcc rises to 2.7V
	if err := h.RS.Out(gpio.Low); err != nil {
		return err
	}
	if err := h.E.Out(gpio.Low); err != nil {
		return err
	}
	// The controller may be in 8-bit mode or halfway through a 4-bit
	// transfer; three 0x3 nibbles resynchronise it, then 0x2 selects 4-bit.
	for _, n := range []uint8{0x3, 0x3, 0x3, 0x2} {
		if err := h.writeNibble(n); err != nil {
			return err
		}
		sleep(5 * time.Millisecond) // > 4.1ms
	}
	steps := []func() error{
		func() error { return h.SetFunction(true, true) },
		func() error { return h.SetEntryMode(true, false) },
		func() error { return h.SetDisplayMode(true, false, false) },
		h.ReturnHome,
		h.Clear,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Display writes data to the display at the current address.
func (h *HD44780) Display(s string) error {
	for _, r := range s {
		if err := h.WriteData(uint8(r)); err != nil {
			return err
		}
	}
	return nil
}

// Columns per line of DDRAM.
const lineLength = 40

// WriteString writes at most limit bytes of s starting at the given row
// (0 or 1) and column (0 to 39).
func (h *HD44780) WriteString(s string, row, col, limit int) error {
	if row < 0 || row >= len(lineAddress) {
		return fmt.Errorf("lcd: row %d out of range", row)
	}
	if col < 0 || col >= lineLength {
		return fmt.Errorf("lcd: column %d out of range", col)
	}
	if err := h.ReturnHome(); err != nil {
		return err
	}
	if err := h.SetDDAddress(lineAddress[row] + uint8(col)); err != nil {
		return err
	}
	for i := 0; i < len(s) && i < limit; i++ {
		if err := h.WriteData(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// RawFunction performs a function or sets an address for the next write.
func (h *HD44780) RawFunction(a uint8) error {
	if err := h.RS.Out(gpio.Low); err != nil {
		return err
	}
	return h.writeByte(a)
}

// Clear clears the display and returns the cursor to the home position.
func (h *HD44780) Clear() error {
	if err := h.RawFunction(0b00000001); err != nil {
		return err
	}
	sleep(2 * time.Millisecond) // 1.52ms
	return nil
}

// ReturnHome returns the cursor to the home position and resets the display
// shift.
func (h *HD44780) ReturnHome() error {
	if err := h.RawFunction(0b00000010); err != nil {
		return err
	}
	sleep(2 * time.Millisecond) // 1.52ms
	return nil
}

// SetEntryMode sets the data entry direction and whether to also shift.
func (h *HD44780) SetEntryMode(increment, shift bool) error {
	a := uint8(0b00000100)
	if increment {
		a += 0b00000010
	}
	if shift {
		a += 0b00000001
	}
	return h.RawFunction(a)
}

// SetDisplayMode turns on/off the whole display, cursor, or cursor-blinking.
func (h *HD44780) SetDisplayMode(display, cursor, blink bool) error {
	a := uint8(0b00001000)
	if display {
		a += 0b00000100
	}
	if cursor {
		a += 0b00000010
	}
	if blink {
		a += 0b00000001
	}
	return h.RawFunction(a)
}

// SetDisplayShiftOrCursorMove sets display shift or cursor move, and direction.
func (h *HD44780) SetDisplayShiftOrCursorMove(shift, right bool) error {
	a := uint8(0b00010000)
	if shift {
		a += 0b00001000
	}
	if right {
		a += 0b00000100
	}
	return h.RawFunction(a)
}

// SetFunction sets the number of display lines and character font. The
// interface data length is always 4 bits.
// twolines = false means use 1 display line.
// largefont = false means use 5x7 font instead of 5x10 font.
func (h *HD44780) SetFunction(twolines, largefont bool) error {
	a := uint8(0b00100000)
	if twolines {
		a += 0b00001000
	}
	if largefont {
		a += 0b00000100
	}
	return h.RawFunction(a)
}

// SetCGAddress sets the CG RAM address (0 <= a < 64).
func (h *HD44780) SetCGAddress(a uint8) error {
	return h.RawFunction(a&0b00111111 | 0b01000000)
}

// SetDDAddress sets the DD RAM address (0 <= a < 128).
func (h *HD44780) SetDDAddress(a uint8) error {
	return h.RawFunction(a&0b01111111 | 0b10000000)
}

// WriteData writes a value to CG RAM or DD RAM.
func (h *HD44780) WriteData(b uint8) error {
	if err := h.RS.Out(gpio.High); err != nil {
		return err
	}
	return h.writeByte(b)
}

// writeByte sends the high nibble, then the low nibble.
func (h *HD44780) writeByte(b uint8) error {
	if err := h.writeNibble(b >> 4); err != nil {
		return err
	}
	if err := h.writeNibble(b & 0x0f); err != nil {
		return err
	}
	sleep(50 * time.Microsecond) // 37µs for most instructions
	return nil
}

func (h *HD44780) writeNibble(n uint8) error {
	for i, p := range h.DB {
		if err := p.Out(n&(1<<i) != 0); err != nil {
			return err
		}
	}
	sleep(time.Microsecond) // tAS > 40ns
	if err := h.E.Out(gpio.High); err != nil {
		return err
	}
	sleep(time.Microsecond) // PWEH > 230ns
	if err := h.E.Out(gpio.Low); err != nil {
		return err
	}
	sleep(time.Microsecond) // tCYCE > 500ns
	return nil
}
