package tdm

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
)

func TestSimPin(t *testing.T) {
	p := NewSimPin("X")
	if p.Name() != "X" || p.String() != "sim:X" {
		t.Errorf("Name, String = %q, %q", p.Name(), p.String())
	}
	if d, _ := p.State(); d || p.High() || p.Low() {
		t.Error("new pin is driven, want floating")
	}
	_ = p.Out(gpio.High)
	if !p.High() {
		t.Error("Out(High) did not drive high")
	}
	_ = p.Out(gpio.Low)
	if !p.Low() {
		t.Error("Out(Low) did not drive low")
	}
	_ = float(p)
	if d, _ := p.State(); d {
		t.Error("float left the pin driven")
	}
	if err := p.In(gpio.Float, gpio.BothEdges); err == nil {
		t.Error("In with edge detection succeeded")
	}
	if p.Changes() != 3 {
		t.Errorf("Changes() = %d, want 3", p.Changes())
	}
}

func TestSimPinsBank(t *testing.T) {
	bank := make(map[string]*SimPin)
	open := SimPins(bank)
	a, _ := open("A")
	again, _ := open("A")
	if a != again {
		t.Error("opening a name twice returned different pins")
	}
	if _, err := open("B"); err != nil {
		t.Fatalf("open error = %v", err)
	}
	if len(bank) != 2 || bank["A"] != a {
		t.Errorf("bank = %v", bank)
	}
}

func TestSegmentsLitPolarity(t *testing.T) {
	var segs [8]*SimPin
	for i := range segs {
		segs[i] = NewSimPin("s")
		_ = segs[i].Out(gpio.Low)
	}
	_ = segs[0].Out(gpio.High)
	digits := []*SimPin{NewSimPin("d0"), NewSimPin("d1")}
	_ = digits[0].Out(gpio.Low)
	_ = digits[1].Out(gpio.High)

	if lit := SegmentsLit(segs, digits, false, false); lit[0] != 0 || lit[1] != SegA {
		t.Errorf("active high: lit = %08b, %08b", lit[0], lit[1])
	}
	if lit := SegmentsLit(segs, digits, true, true); lit[0] != 0xff&^SegA || lit[1] != 0 {
		t.Errorf("active low: lit = %08b, %08b", lit[0], lit[1])
	}
}
