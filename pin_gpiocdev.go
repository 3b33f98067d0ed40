//go:build linux

package tdm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"
)

// cdevPin adapts a line requested from the GPIO character device.
type cdevPin struct {
	line   *gpiocdev.Line
	output bool
}

func (p *cdevPin) String() string {
	return fmt.Sprintf("gpiocdev:%s/%d", p.line.Chip(), p.line.Offset())
}

func (p *cdevPin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return fmt.Errorf("%s: edge detection unsupported", p)
	}
	opts := []gpiocdev.LineConfigOption{gpiocdev.AsInput}
	switch pull {
	case gpio.PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case gpio.PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	case gpio.Float:
		opts = append(opts, gpiocdev.WithBiasDisabled)
	}
	if err := p.line.Reconfigure(opts...); err != nil {
		return err
	}
	p.output = false
	return nil
}

func (p *cdevPin) Out(l gpio.Level) error {
	v := 0
	if l {
		v = 1
	}
	if p.output {
		return p.line.SetValue(v)
	}
	if err := p.line.Reconfigure(gpiocdev.AsOutput(v)); err != nil {
		return err
	}
	p.output = true
	return nil
}

// GPIOCDevPins returns an opener for line offsets on the given chip
// (e.g. "gpiochip0"), and a function that releases every requested line.
// Lines are requested as floating inputs.
func GPIOCDevPins(chip string) (PinOpener, func() error) {
	var lines []*gpiocdev.Line
	open := func(name string) (Pin, error) {
		off, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(name), "GPIO"))
		if err != nil || off < 0 {
			return nil, fmt.Errorf("%w: bad line offset %q", ErrPins, name)
		}
		l, err := gpiocdev.RequestLine(chip, off, gpiocdev.AsInput, gpiocdev.WithConsumer("tdm"))
		if err != nil {
			return nil, fmt.Errorf("requesting %s line %d: %w", chip, off, err)
		}
		lines = append(lines, l)
		return &cdevPin{line: l}, nil
	}
	closeAll := func() error {
		var first error
		for _, l := range lines {
			if err := l.Close(); err != nil && first == nil {
				first = err
			}
		}
		lines = nil
		return first
	}
	return open, closeAll
}
