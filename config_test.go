package tdm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, in := range []string{"", "  \n", "{}"} {
		c, err := LoadConfig([]byte(in))
		if err != nil {
			t.Fatalf("LoadConfig(%q) error = %v", in, err)
		}
		if c.Backend != BackendPeriph {
			t.Errorf("Backend = %q, want %q", c.Backend, BackendPeriph)
		}
		if got := c.Charlieplex.Refresh.TickPeriod(); got != 3*time.Millisecond {
			t.Errorf("charlieplex period = %v, want 3ms", got)
		}
		if got := c.SevenSegment.Refresh.TickPeriod(); got != 7*time.Millisecond {
			t.Errorf("seven-segment period = %v, want 7ms", got)
		}
		if len(c.SevenSegment.Digits) != 4 {
			t.Errorf("%d digits, want 4", len(c.SevenSegment.Digits))
		}
		if c.LCD.RS == "" || c.LCD.E == "" || c.LCD.Data[3] == "" {
			t.Errorf("LCD lines not defaulted: %+v", c.LCD)
		}
	}
}

func TestLoadConfigRefresh(t *testing.T) {
	c, err := LoadConfig([]byte(`{
		"backend": "sim",
		"charlieplex": {"refresh": {"period": "2ms"}},
		"seven_segment": {
			"digits": ["a", "b"],
			"digit_active_low": true,
			"refresh": {"counts": 5000}
		}
	}`))
	if err != nil {
		t.Fatalf("LoadConfig error = %v", err)
	}
	if got := c.Charlieplex.Refresh.TickPeriod(); got != 2*time.Millisecond {
		t.Errorf("charlieplex period = %v, want 2ms", got)
	}
	if got := c.SevenSegment.Refresh.TickPeriod(); got != 5*time.Millisecond {
		t.Errorf("seven-segment period = %v, want 5ms", got)
	}
	if !c.SevenSegment.DigitActiveLow {
		t.Error("DigitActiveLow not read")
	}

	c, err = LoadConfig([]byte(`{"charlieplex": {"refresh": {"period": 1500000, "counts": 9000}}}`))
	if err != nil {
		t.Fatalf("LoadConfig error = %v", err)
	}
	if got := c.Charlieplex.Refresh.TickPeriod(); got != 1500*time.Microsecond {
		t.Errorf("period = %v, want 1.5ms from integer nanoseconds", got)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{`{"backend": "serial"}`, ErrBackend},
		{`{"seven_segment": {"digits": ["1","2","3","4","5","6","7","8","9"]}}`, ErrSlots},
		{`{"charlieplex": {"refresh": {"period": "-1ms"}}}`, ErrPeriod},
	}
	for _, test := range tests {
		if _, err := LoadConfig([]byte(test.in)); !errors.Is(err, test.want) {
			t.Errorf("LoadConfig(%s) error = %v, want %v", test.in, err, test.want)
		}
	}
	for _, in := range []string{`{`, `{"charlieplex": {"refresh": {"period": "soon"}}}`} {
		if _, err := LoadConfig([]byte(in)); err == nil {
			t.Errorf("LoadConfig(%s) succeeded", in)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tdm.json")
	if err := os.WriteFile(path, []byte(`{"backend": "sim"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile error = %v", err)
	}
	if c.Backend != BackendSim {
		t.Errorf("Backend = %q, want sim", c.Backend)
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadConfigFile of a missing file succeeded")
	}
	if c, err := LoadConfigFile(""); err != nil || c.Backend != BackendPeriph {
		t.Errorf("LoadConfigFile(\"\") = %+v, %v, want defaults", c, err)
	}
}

func TestConfigSimDisplays(t *testing.T) {
	c, err := LoadConfig([]byte(`{"backend": "sim", "seven_segment": {"blank_leading_zeros": true}}`))
	if err != nil {
		t.Fatalf("LoadConfig error = %v", err)
	}
	bank := make(map[string]*SimPin)
	open, release, err := c.OpenPins(bank)
	if err != nil {
		t.Fatalf("OpenPins error = %v", err)
	}
	defer release()

	cp, tk, err := c.NewCharlieplex(open)
	if err != nil {
		t.Fatalf("NewCharlieplex error = %v", err)
	}
	if cp.Slots() != CharlieplexLEDs || tk.Period() != 3*time.Millisecond {
		t.Errorf("charlieplex: %d slots at %v", cp.Slots(), tk.Period())
	}

	d, tk, err := c.NewSevenSegment(open)
	if err != nil {
		t.Fatalf("NewSevenSegment error = %v", err)
	}
	if d.Slots() != 4 || tk.Period() != 7*time.Millisecond || !d.BlankLeadingZeros {
		t.Errorf("seven-segment: %d slots at %v, blanking %v", d.Slots(), tk.Period(), d.BlankLeadingZeros)
	}

	if _, err := c.NewLCD(open); err != nil {
		t.Fatalf("NewLCD error = %v", err)
	}
	// 3 charlieplex + 8 segment + 4 digit + 6 LCD lines.
	if len(bank) != 21 {
		t.Errorf("%d sim pins opened, want 21", len(bank))
	}
	for _, name := range c.Charlieplex.Pins {
		if bank[name] == nil {
			t.Errorf("pin %q not opened", name)
		}
	}

	c.Backend = "bogus"
	if _, _, err := c.OpenPins(nil); !errors.Is(err, ErrBackend) {
		t.Errorf("OpenPins error = %v, want ErrBackend", err)
	}
}

func TestConfigOpenError(t *testing.T) {
	c, _ := LoadConfig([]byte(`{"backend": "sim"}`))
	fail := func(name string) (Pin, error) { return nil, ErrPins }
	if _, _, err := c.NewCharlieplex(fail); !errors.Is(err, ErrPins) {
		t.Errorf("NewCharlieplex error = %v, want ErrPins", err)
	}
	if _, err := c.NewLCD(fail); !errors.Is(err, ErrPins) {
		t.Errorf("NewLCD error = %v, want ErrPins", err)
	}
}
