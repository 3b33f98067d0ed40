// Package tdm drives small multiplexed displays from GPIO pins: a timer
// tick lights one slot (an LED, a digit) at a time, fast enough that the
// whole display appears lit. It includes renderers for charlieplexed LEDs
// and multiplexed seven-segment digits, and a write-only HD44780 character
// LCD driver.
package tdm // import "github.com/DrJosh9000/tdm"

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Renderer drives the physical outputs for one display. Render lights only
// the given slot, leaving every other slot neutral; Blank leaves all slots
// neutral.
type Renderer interface {
	Slots() int
	Render(slot int, f Frame) error
	Blank() error
}

// Engine visits each slot of a Renderer in round-robin order, one slot per
// timer tick.
type Engine struct {
	Log logrus.FieldLogger

	r     Renderer
	state *State
	timer TimerSource
	slots int

	cursor    atomic.Int32
	ticks     atomic.Uint64
	pinErrors atomic.Uint64
}

// NewEngine wires a renderer to the state it displays and the timer that
// paces it. t may be nil if the caller invokes Tick itself.
func NewEngine(r Renderer, s *State, t TimerSource) (*Engine, error) {
	if r == nil || s == nil {
		return nil, fmt.Errorf("%w: renderer and state are required", ErrSlots)
	}
	n := r.Slots()
	if n < 1 || n > MaxSlots {
		return nil, fmt.Errorf("%w: renderer has %d slots", ErrSlots, n)
	}
	if s.Slots() != n {
		return nil, fmt.Errorf("%w: renderer has %d slots, state has %d", ErrSlots, n, s.Slots())
	}
	return &Engine{
		Log:   logrus.StandardLogger(),
		r:     r,
		state: s,
		timer: t,
		slots: n,
	}, nil
}

// Tick renders the slot under the cursor, advances the cursor, and then
// acknowledges the timer. It does not block or allocate.
func (e *Engine) Tick() {
	slot := int(e.cursor.Load())
	if err := e.r.Render(slot, e.state.Load()); err != nil {
		e.pinErrors.Add(1)
	}
	next := slot + 1
	if next == e.slots {
		next = 0
	}
	e.cursor.Store(int32(next))
	e.ticks.Add(1)
	if e.timer != nil {
		e.timer.Acknowledge()
	}
}

// Cursor returns the slot the next Tick will render.
func (e *Engine) Cursor() int { return int(e.cursor.Load()) }

// Ticks returns the number of ticks handled.
func (e *Engine) Ticks() uint64 { return e.ticks.Load() }

// PinErrors returns the number of ticks on which a pin refused a change.
func (e *Engine) PinErrors() uint64 { return e.pinErrors.Load() }

// Run ticks the engine from its timer until ctx is done, then blanks the
// display.
func (e *Engine) Run(ctx context.Context) error {
	if e.timer == nil {
		return fmt.Errorf("%w: engine has no timer", ErrPeriod)
	}
	log := loggerOr(e.Log).WithField("slots", e.slots)
	if p, ok := e.timer.(interface{ Period() time.Duration }); ok {
		rate := RefreshRate(p.Period(), e.slots)
		log = log.WithFields(logrus.Fields{"period": p.Period(), "refresh": rate})
		if rate < FlickerFusion {
			log.Warnf("refresh rate below %v, display may flicker", FlickerFusion)
		}
	}
	log.Info("refresh started")

	err := e.timer.Start(ctx, e.Tick)
	if berr := e.r.Blank(); berr != nil && err == nil {
		err = fmt.Errorf("blanking display: %w", berr)
	}
	log.WithFields(logrus.Fields{
		"ticks":      e.Ticks(),
		"pin_errors": e.PinErrors(),
	}).Info("refresh stopped")
	return err
}
