package tdm

import (
	"fmt"
	"sync/atomic"
)

// MaxSlots is the largest number of slots a Frame can hold.
const MaxSlots = 8

// Frame holds one byte per slot, slot 0 in the least significant byte.
type Frame uint64

// Slot returns the byte for slot i.
func (f Frame) Slot(i int) uint8 {
	return uint8(f >> (8 * uint(i)))
}

// WithSlot returns a copy of f with slot i set to b.
func (f Frame) WithSlot(i int, b uint8) Frame {
	shift := 8 * uint(i)
	return f&^(0xff<<shift) | Frame(b)<<shift
}

// State is the display state shared between the application, which writes
// it, and the refresh engine, which reads it once per tick. Every read and
// write is a single atomic operation on the whole frame, so the engine never
// observes half of a composite update and never waits for the writer.
type State struct {
	slots int
	v     atomic.Uint64
}

// NewState returns an all-off state with the given number of slots.
func NewState(slots int) (*State, error) {
	if slots < 1 || slots > MaxSlots {
		return nil, fmt.Errorf("%w: %d not in 1..%d", ErrSlots, slots, MaxSlots)
	}
	return &State{slots: slots}, nil
}

// Slots returns the number of slots.
func (s *State) Slots() int { return s.slots }

// Load returns the current frame.
func (s *State) Load() Frame {
	return Frame(s.v.Load())
}

// Store replaces the whole frame. Bytes beyond Slots are discarded.
func (s *State) Store(f Frame) {
	s.v.Store(uint64(f & s.mask()))
}

// SetSlot sets slot i to b. Slots outside 0..Slots-1 are ignored.
func (s *State) SetSlot(i int, b uint8) {
	if i < 0 || i >= s.slots {
		return
	}
	s.Update(func(f Frame) Frame { return f.WithSlot(i, b) })
}

// Update applies fn to the current frame and publishes the result in one
// step. fn may be called more than once if another writer raced it, so it
// must not have side effects.
func (s *State) Update(fn func(Frame) Frame) {
	for {
		old := s.v.Load()
		next := uint64(fn(Frame(old)) & s.mask())
		if s.v.CompareAndSwap(old, next) {
			return
		}
	}
}

func (s *State) mask() Frame {
	if s.slots >= MaxSlots {
		return ^Frame(0)
	}
	return Frame(1)<<(8*uint(s.slots)) - 1
}
