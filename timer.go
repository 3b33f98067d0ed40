package tdm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
)

// Timer tuning used by the original MSP430 firmware: Timer0 in up mode on
// the 1 MHz SMCLK, reloaded every 3000 counts for six LEDs and every 7000
// counts for four digits.
const (
	SMCLK              = 1 * physic.MegaHertz
	CharlieplexCounts  = 3000
	SevenSegmentCounts = 7000
)

// FlickerFusion is the refresh rate above which a multiplexed display
// appears continuous.
const FlickerFusion = 60 * physic.Hertz

// PeriodFromCounts converts a timer reload value at the given clock into a
// tick period.
func PeriodFromCounts(counts uint32, clock physic.Frequency) time.Duration {
	return time.Duration(counts) * clock.Period()
}

// RefreshRate is the rate at which each slot is revisited when ticks arrive
// every period and the cycle has slots slots.
func RefreshRate(period time.Duration, slots int) physic.Frequency {
	if period <= 0 || slots <= 0 {
		return 0
	}
	return physic.PeriodToFrequency(period * time.Duration(slots))
}

// TimerSource delivers one callback per configured period. The callback
// calls Acknowledge once it has finished with the tick.
type TimerSource interface {
	Configure(period time.Duration) error
	Start(ctx context.Context, onTick func()) error
	Acknowledge()
}

// Ticker is a TimerSource backed by time.Ticker. Ticks are fire-and-forget:
// if a callback overruns, the ticks it covered are dropped and counted.
type Ticker struct {
	Log logrus.FieldLogger

	period  atomic.Int64
	reset   chan time.Duration
	pending atomic.Bool
	missed  atomic.Uint64
}

// NewTicker returns a Ticker configured for period.
func NewTicker(period time.Duration) (*Ticker, error) {
	t := &Ticker{
		Log:   logrus.StandardLogger(),
		reset: make(chan time.Duration, 1),
	}
	if err := t.Configure(period); err != nil {
		return nil, err
	}
	return t, nil
}

// Configure sets the tick period. It may be called while the ticker runs;
// the new period applies from the next tick.
func (t *Ticker) Configure(period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("%w: %v", ErrPeriod, period)
	}
	t.period.Store(int64(period))
	select {
	case t.reset <- period:
	default:
		// A retune is already queued; the loop reads t.period anyway.
	}
	return nil
}

// Period returns the configured period.
func (t *Ticker) Period() time.Duration {
	return time.Duration(t.period.Load())
}

// Missed returns the number of periods that passed without a callback
// running to its acknowledgement.
func (t *Ticker) Missed() uint64 { return t.missed.Load() }

// Acknowledge marks the current tick as handled.
func (t *Ticker) Acknowledge() {
	t.pending.Store(false)
}

// Start calls onTick once per period until ctx is done. It blocks.
func (t *Ticker) Start(ctx context.Context, onTick func()) error {
	period := t.Period()
	if period <= 0 {
		return fmt.Errorf("%w: ticker not configured", ErrPeriod)
	}
	log := loggerOr(t.Log)
	log.WithField("period", period).Debug("ticker started")
	tk := time.NewTicker(period)
	defer tk.Stop()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			log.WithField("missed", t.Missed()).Debug("ticker stopped")
			return nil
		case <-t.reset:
			period = t.Period()
			tk.Reset(period)
			last = time.Time{}
		case now := <-tk.C:
			if !last.IsZero() {
				// time.Ticker drops ticks for slow receivers.
				t.missed.Add(droppedTicks(now.Sub(last), period))
			}
			last = now
			if t.pending.Swap(true) {
				t.missed.Add(1)
			}
			onTick()
		}
	}
}

// droppedTicks returns how many ticks a gap of the given length between two
// delivered ticks skipped, to the nearest period.
func droppedTicks(gap, period time.Duration) uint64 {
	if period <= 0 || gap < period+period/2 {
		return 0
	}
	return uint64((gap+period/2)/period) - 1
}

func loggerOr(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return logrus.StandardLogger()
	}
	return l
}
