package tdm

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Backend names accepted in Config.Backend.
const (
	BackendPeriph   = "periph"
	BackendRPIO     = "rpio"
	BackendGPIOCDev = "gpiocdev"
	BackendSim      = "sim"
)

// Duration is a time.Duration that reads from JSON as a string such as
// "3ms".
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %w", err)
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Refresh configures the tick period of one display. Period wins over
// Counts if both are set.
type Refresh struct {
	Period Duration `json:"period,omitempty"`
	Counts uint32   `json:"counts,omitempty"` // timer counts at SMCLK
}

// TickPeriod returns the configured period.
func (r Refresh) TickPeriod() time.Duration {
	if r.Period > 0 {
		return time.Duration(r.Period)
	}
	return PeriodFromCounts(r.Counts, SMCLK)
}

// CharlieplexConfig names the three charlieplex lines, right to left.
type CharlieplexConfig struct {
	Pins    [3]string `json:"pins"`
	Refresh Refresh   `json:"refresh"`
}

// SevenSegmentConfig names the segment lines (A..G, DP) and the digit
// enable lines (least significant first).
type SevenSegmentConfig struct {
	Segments          [8]string `json:"segments"`
	Digits            []string  `json:"digits"`
	SegmentActiveLow  bool      `json:"segment_active_low,omitempty"`
	DigitActiveLow    bool      `json:"digit_active_low,omitempty"`
	BlankLeadingZeros bool      `json:"blank_leading_zeros,omitempty"`
	Refresh           Refresh   `json:"refresh"`
}

// LCDConfig names the character LCD lines.
type LCDConfig struct {
	RS   string    `json:"rs"`
	E    string    `json:"e"`
	Data [4]string `json:"data"` // D4..D7
}

// Config describes the pin backend and the wiring of each display.
type Config struct {
	Backend      string             `json:"backend"`
	Chip         string             `json:"chip,omitempty"` // gpiocdev only
	Charlieplex  CharlieplexConfig  `json:"charlieplex"`
	SevenSegment SevenSegmentConfig `json:"seven_segment"`
	LCD          LCDConfig          `json:"lcd"`
}

// LoadConfig parses a JSON configuration and fills in defaults. An empty
// input yields the default configuration.
func LoadConfig(jsonData []byte) (*Config, error) {
	var config Config
	if len(strings.TrimSpace(string(jsonData))) > 0 {
		if err := json.Unmarshal(jsonData, &config); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	applyDefaults(&config)
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfigFile reads the configuration at path. An empty path yields the
// default configuration.
func LoadConfigFile(path string) (*Config, error) {
	if path == "" {
		return LoadConfig(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return LoadConfig(data)
}

// applyDefaults fills in missing values. The default wiring uses BCM pin
// numbers on a Raspberry Pi header and the refresh tuning of the firmware.
func applyDefaults(config *Config) {
	if config.Backend == "" {
		config.Backend = BackendPeriph
	}
	if config.Chip == "" {
		config.Chip = "gpiochip0"
	}

	cp := &config.Charlieplex
	if cp.Pins == [3]string{} {
		cp.Pins = [3]string{"GPIO17", "GPIO27", "GPIO22"}
	}
	if cp.Refresh.Period == 0 && cp.Refresh.Counts == 0 {
		cp.Refresh.Counts = CharlieplexCounts
	}

	ss := &config.SevenSegment
	if ss.Segments == [8]string{} {
		ss.Segments = [8]string{"GPIO5", "GPIO6", "GPIO13", "GPIO19", "GPIO26", "GPIO12", "GPIO16", "GPIO20"}
	}
	if len(ss.Digits) == 0 {
		ss.Digits = []string{"GPIO4", "GPIO18", "GPIO23", "GPIO24"}
	}
	if ss.Refresh.Period == 0 && ss.Refresh.Counts == 0 {
		ss.Refresh.Counts = SevenSegmentCounts
	}

	lcd := &config.LCD
	if lcd.RS == "" {
		lcd.RS = "GPIO25"
	}
	if lcd.E == "" {
		lcd.E = "GPIO8"
	}
	if lcd.Data == [4]string{} {
		lcd.Data = [4]string{"GPIO7", "GPIO9", "GPIO10", "GPIO11"}
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendPeriph, BackendRPIO, BackendGPIOCDev, BackendSim:
	default:
		return fmt.Errorf("%w: %q", ErrBackend, c.Backend)
	}
	if len(c.SevenSegment.Digits) > MaxSlots {
		return fmt.Errorf("%w: %d digits", ErrSlots, len(c.SevenSegment.Digits))
	}
	for _, r := range []Refresh{c.Charlieplex.Refresh, c.SevenSegment.Refresh} {
		if r.TickPeriod() <= 0 {
			return fmt.Errorf("%w: %v", ErrPeriod, r.TickPeriod())
		}
	}
	return nil
}

// OpenPins returns an opener for the configured backend and a function that
// releases whatever the backend holds. Simulated pins are recorded in sim,
// which may be nil for other backends.
func (c *Config) OpenPins(sim map[string]*SimPin) (PinOpener, func() error, error) {
	nop := func() error { return nil }
	switch c.Backend {
	case BackendPeriph:
		open, err := PeriphPins()
		return open, nop, err
	case BackendRPIO:
		return RPIOPins()
	case BackendGPIOCDev:
		open, closeAll := GPIOCDevPins(c.Chip)
		return open, closeAll, nil
	case BackendSim:
		if sim == nil {
			sim = make(map[string]*SimPin)
		}
		return SimPins(sim), nop, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrBackend, c.Backend)
}

// NewCharlieplex opens the configured lines and returns the renderer, with
// a fresh state, and a ticker at the configured period.
func (c *Config) NewCharlieplex(open PinOpener) (*Charlieplex, *Ticker, error) {
	pins, err := openAll(open, c.Charlieplex.Pins[:])
	if err != nil {
		return nil, nil, err
	}
	s, err := NewState(CharlieplexLEDs)
	if err != nil {
		return nil, nil, err
	}
	cp, err := NewCharlieplex([3]Pin{pins[0], pins[1], pins[2]}, s)
	if err != nil {
		return nil, nil, err
	}
	t, err := NewTicker(c.Charlieplex.Refresh.TickPeriod())
	if err != nil {
		return nil, nil, err
	}
	return cp, t, nil
}

// NewSevenSegment opens the configured lines and returns the renderer, with
// a fresh state, and a ticker at the configured period.
func (c *Config) NewSevenSegment(open PinOpener) (*SevenSegment, *Ticker, error) {
	cfg := &c.SevenSegment
	segs, err := openAll(open, cfg.Segments[:])
	if err != nil {
		return nil, nil, err
	}
	digits, err := openAll(open, cfg.Digits)
	if err != nil {
		return nil, nil, err
	}
	s, err := NewState(len(digits))
	if err != nil {
		return nil, nil, err
	}
	var seg8 [8]Pin
	copy(seg8[:], segs)
	d, err := NewSevenSegment(seg8, digits, s)
	if err != nil {
		return nil, nil, err
	}
	d.SegmentActiveLow = cfg.SegmentActiveLow
	d.DigitActiveLow = cfg.DigitActiveLow
	d.BlankLeadingZeros = cfg.BlankLeadingZeros
	t, err := NewTicker(cfg.Refresh.TickPeriod())
	if err != nil {
		return nil, nil, err
	}
	return d, t, nil
}

// NewLCD opens the configured LCD lines. The caller must call Init.
func (c *Config) NewLCD(open PinOpener) (*HD44780, error) {
	names := append([]string{c.LCD.RS, c.LCD.E}, c.LCD.Data[:]...)
	pins, err := openAll(open, names)
	if err != nil {
		return nil, err
	}
	return &HD44780{
		RS: pins[0],
		E:  pins[1],
		DB: [4]Pin{pins[2], pins[3], pins[4], pins[5]},
	}, nil
}
