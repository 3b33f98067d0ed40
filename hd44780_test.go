package tdm

import (
	"errors"
	"testing"
	"time"
)

type lcdWrite struct {
	rs    bool
	value uint8
}

// lcdBus records the nibbles clocked into an HD44780 on each falling edge
// of E.
type lcdBus struct {
	rs, e  *SimPin
	db     [4]*SimPin
	high   bool
	nibble []lcdWrite
}

func newLCDBus(t *testing.T) (*HD44780, *lcdBus) {
	t.Helper()
	old := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = old })

	b := &lcdBus{rs: NewSimPin("RS"), e: NewSimPin("E")}
	h := &HD44780{RS: b.rs, E: b.e}
	for i := range b.db {
		b.db[i] = NewSimPin("DB" + string(rune('4'+i)))
		h.DB[i] = b.db[i]
	}
	b.e.Notify = func(e *SimPin) {
		if e.High() {
			b.high = true
			return
		}
		if !b.high {
			return
		}
		b.high = false
		var n uint8
		for i, p := range b.db {
			if p.High() {
				n |= 1 << i
			}
		}
		b.nibble = append(b.nibble, lcdWrite{rs: b.rs.High(), value: n})
	}
	return h, b
}

// bytes pairs up the recorded nibbles after skip, high nibble first.
func (b *lcdBus) bytes(t *testing.T, skip int) []lcdWrite {
	t.Helper()
	ns := b.nibble[skip:]
	if len(ns)%2 != 0 {
		t.Fatalf("%d nibbles after the first %d, want whole bytes", len(ns), skip)
	}
	var out []lcdWrite
	for i := 0; i < len(ns); i += 2 {
		if ns[i].rs != ns[i+1].rs {
			t.Errorf("byte %d: RS changed between nibbles", i/2)
		}
		out = append(out, lcdWrite{rs: ns[i].rs, value: ns[i].value<<4 | ns[i+1].value})
	}
	return out
}

func checkWrites(t *testing.T, got, want []lcdWrite) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("writes = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestHD44780Init(t *testing.T) {
	h, b := newLCDBus(t)
	if err := h.Init(); err != nil {
		t.Fatalf("Init error = %v", err)
	}
	if len(b.nibble) < 4 {
		t.Fatalf("%d nibbles, want at least 4", len(b.nibble))
	}
	for i, want := range []uint8{0x3, 0x3, 0x3, 0x2} {
		if n := b.nibble[i]; n.value != want || n.rs {
			t.Errorf("nibble %d = %+v, want instruction %#x", i, n, want)
		}
	}
	checkWrites(t, b.bytes(t, 4), []lcdWrite{
		{value: 0x2c}, // function set: 4-bit, two lines, 5x10
		{value: 0x06}, // entry mode: increment
		{value: 0x0c}, // display on
		{value: 0x02}, // return home
		{value: 0x01}, // clear
	})
}

func TestHD44780WriteString(t *testing.T) {
	h, b := newLCDBus(t)
	if err := h.WriteString("Hi", 1, 3, 16); err != nil {
		t.Fatalf("WriteString error = %v", err)
	}
	checkWrites(t, b.bytes(t, 0), []lcdWrite{
		{value: 0x02},
		{value: 0xc3},
		{rs: true, value: 'H'},
		{rs: true, value: 'i'},
	})

	b.nibble = nil
	if err := h.WriteString("Hello", 0, 0, 3); err != nil {
		t.Fatalf("WriteString error = %v", err)
	}
	checkWrites(t, b.bytes(t, 0), []lcdWrite{
		{value: 0x02},
		{value: 0x80},
		{rs: true, value: 'H'},
		{rs: true, value: 'e'},
		{rs: true, value: 'l'},
	})
}

func TestHD44780Addresses(t *testing.T) {
	h, b := newLCDBus(t)
	_ = h.SetCGAddress(0xff)
	_ = h.SetDDAddress(0xff)
	_ = h.SetDisplayShiftOrCursorMove(true, true)
	_ = h.SetDisplayMode(true, true, true)
	checkWrites(t, b.bytes(t, 0), []lcdWrite{
		{value: 0x7f},
		{value: 0xff},
		{value: 0x1c},
		{value: 0x0f},
	})
}

func TestHD44780Errors(t *testing.T) {
	h, _ := newLCDBus(t)
	if err := h.WriteString("x", 2, 0, 16); err == nil {
		t.Error("WriteString on row 2 succeeded")
	}
	h.E = nil
	if err := h.Init(); !errors.Is(err, ErrPins) {
		t.Errorf("Init with no E line error = %v, want ErrPins", err)
	}
}

func TestHD44780Display(t *testing.T) {
	h, b := newLCDBus(t)
	if err := h.Display("ok"); err != nil {
		t.Fatalf("Display error = %v", err)
	}
	checkWrites(t, b.bytes(t, 0), []lcdWrite{
		{rs: true, value: 'o'},
		{rs: true, value: 'k'},
	})
}

func TestHD44780WriteStringColumn(t *testing.T) {
	h, b := newLCDBus(t)
	for _, col := range []int{-1, 40, 255} {
		if err := h.WriteString("x", 0, col, 16); err == nil {
			t.Errorf("WriteString at column %d succeeded", col)
		}
	}
	if len(b.nibble) != 0 {
		t.Errorf("%d nibbles written for out-of-range columns, want none", len(b.nibble))
	}
	if err := h.WriteString("x", 1, 39, 16); err != nil {
		t.Fatalf("WriteString at column 39 error = %v", err)
	}
	checkWrites(t, b.bytes(t, 0), []lcdWrite{
		{value: 0x02},
		{value: 0xe7},
		{rs: true, value: 'x'},
	})
}
