//go:build !linux

package tdm

import "fmt"

// GPIOCDevPins is only available on Linux.
func GPIOCDevPins(chip string) (PinOpener, func() error) {
	open := func(name string) (Pin, error) {
		return nil, fmt.Errorf("%w: gpiocdev requires linux", ErrBackend)
	}
	return open, func() error { return nil }
}
