package tdm

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// SimPin is a virtual pin that remembers its direction and level. It stands
// in for hardware in the simulator and in tests.
type SimPin struct {
	name string

	// Notify, if set, is called after every In or Out. It must be set before
	// the pin is shared.
	Notify func(*SimPin)

	mu      sync.Mutex
	output  bool
	level   gpio.Level
	pull    gpio.Pull
	changes int
}

// NewSimPin returns a floating input pin.
func NewSimPin(name string) *SimPin {
	return &SimPin{name: name, pull: gpio.Float}
}

// SimPins returns an opener that creates a fresh SimPin per name and keeps
// them in bank, so the caller can observe what was opened.
func SimPins(bank map[string]*SimPin) PinOpener {
	var mu sync.Mutex
	return func(name string) (Pin, error) {
		mu.Lock()
		defer mu.Unlock()
		if p, ok := bank[name]; ok {
			return p, nil
		}
		p := NewSimPin(name)
		bank[name] = p
		return p, nil
	}
}

func (p *SimPin) String() string { return "sim:" + p.name }

// Name returns the pin name.
func (p *SimPin) Name() string { return p.name }

// In makes the pin an input.
func (p *SimPin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return fmt.Errorf("%s: edge detection unsupported", p)
	}
	p.mu.Lock()
	p.output = false
	p.pull = pull
	p.changes++
	p.mu.Unlock()
	if p.Notify != nil {
		p.Notify(p)
	}
	return nil
}

// Out makes the pin an output driving l.
func (p *SimPin) Out(l gpio.Level) error {
	p.mu.Lock()
	p.output = true
	p.level = l
	p.changes++
	p.mu.Unlock()
	if p.Notify != nil {
		p.Notify(p)
	}
	return nil
}

// State reports whether the pin is driven and, if so, at which level.
func (p *SimPin) State() (driven bool, l gpio.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output, p.level
}

// High reports whether the pin is driving high.
func (p *SimPin) High() bool {
	d, l := p.State()
	return d && l == gpio.High
}

// Low reports whether the pin is driving low.
func (p *SimPin) Low() bool {
	d, l := p.State()
	return d && l == gpio.Low
}

// Changes returns the number of In and Out calls so far.
func (p *SimPin) Changes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changes
}

// CharlieLit returns the mask of LEDs that conduct given the current state
// of the three charlieplex lines: an LED lights when its anode line drives
// high and its cathode line drives low.
func CharlieLit(pins [3]*SimPin) uint8 {
	var lit uint8
	for i, d := range charlieTable {
		if pins[d.high].High() && pins[d.low].Low() {
			lit |= 1 << i
		}
	}
	return lit
}

// SegmentsLit returns, for each digit, the segments that light given the
// current line states. Segment lines are A..G, DP. A digit lights when its
// enable line is active.
func SegmentsLit(segments [8]*SimPin, digits []*SimPin, segmentActiveLow, digitActiveLow bool) [MaxSlots]uint8 {
	var mask uint8
	for i, p := range segments {
		if active(p, segmentActiveLow) {
			mask |= segmentBits[i]
		}
	}
	var lit [MaxSlots]uint8
	for i, p := range digits {
		if i < MaxSlots && active(p, digitActiveLow) {
			lit[i] = mask
		}
	}
	return lit
}

func active(p *SimPin, activeLow bool) bool {
	if activeLow {
		return p.Low()
	}
	return p.High()
}
