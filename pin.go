package tdm

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Pin is a single GPIO line whose direction and level can be set. In with
// gpio.Float leaves the line high-impedance; Out makes it an output driving
// the given level. Every gpio.PinIO is a Pin.
type Pin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Out(l gpio.Level) error
}

// PinOpener resolves a pin name to a Pin. Names are backend specific.
type PinOpener func(name string) (Pin, error)

// float puts p into the high-impedance state.
func float(p Pin) error {
	return p.In(gpio.Float, gpio.NoEdge)
}

// openAll resolves each name with open, in order.
func openAll(open PinOpener, names []string) ([]Pin, error) {
	pins := make([]Pin, len(names))
	for i, n := range names {
		p, err := open(n)
		if err != nil {
			return nil, fmt.Errorf("opening pin %q: %w", n, err)
		}
		pins[i] = p
	}
	return pins, nil
}

var periphInit struct {
	once sync.Once
	err  error
}

// PeriphPins initialises the periph.io host drivers (once) and returns an
// opener that looks pins up in the periph.io registry, e.g. "GPIO17".
func PeriphPins() (PinOpener, error) {
	periphInit.once.Do(func() {
		_, periphInit.err = host.Init()
	})
	if periphInit.err != nil {
		return nil, fmt.Errorf("initialising periph host: %w", periphInit.err)
	}
	return func(name string) (Pin, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("%w: no such pin %q", ErrPins, name)
		}
		return p, nil
	}, nil
}
