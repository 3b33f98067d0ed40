// Command povsim runs the charlieplex and seven-segment demos against
// simulated pins and shows the result in a window. Each lamp's brightness is
// the fraction of time its pins actually light it, so the window shows the
// same persistence-of-vision effect as real hardware, flicker included.
package main

import (
	"context"
	"flag"
	"image/color"
	"sync"
	"time"

	"github.com/DrJosh9000/tdm"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/sirupsen/logrus"
)

var (
	configPath = flag.String("config", "", "JSON configuration file (defaults if empty)")
	sampleRate = flag.Duration("sample", 250*time.Microsecond, "pin sampling interval")
	slow       = flag.Float64("slow", 1, "multiply refresh periods by this, to see the scanning")
)

const (
	screenWidth  = 480
	screenHeight = 200
)

type game struct {
	ctx context.Context

	charlie [3]*tdm.SimPin
	segs    [8]*tdm.SimPin
	digits  []*tdm.SimPin
	ss      tdm.SevenSegmentConfig

	mu      sync.Mutex
	samples int
	leds    [tdm.CharlieplexLEDs]int
	lit     [tdm.MaxSlots][8]int

	// brightness shown by the last Draw
	ledGlow [tdm.CharlieplexLEDs]float64
	segGlow [tdm.MaxSlots][8]float64
}

// sample accumulates which lamps are lit, until ctx is done.
func (g *game) sample(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-g.ctx.Done():
			return
		case <-t.C:
		}
		leds := tdm.CharlieLit(g.charlie)
		segs := tdm.SegmentsLit(g.segs, g.digits, g.ss.SegmentActiveLow, g.ss.DigitActiveLow)
		g.mu.Lock()
		g.samples++
		for i := range g.leds {
			if leds&(1<<i) != 0 {
				g.leds[i]++
			}
		}
		for d := range g.digits {
			for s := 0; s < 8; s++ {
				if segs[d]&(0x80>>s) != 0 {
					g.lit[d][s]++
				}
			}
		}
		g.mu.Unlock()
	}
}

func (g *game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.samples == 0 {
		return nil
	}
	n := float64(g.samples)
	// Each lamp gets at most 1/slots of the time; scale that to full glow.
	for i, c := range g.leds {
		g.ledGlow[i] = min(1, float64(c)*tdm.CharlieplexLEDs/n)
		g.leds[i] = 0
	}
	for d := range g.digits {
		for s := range g.lit[d] {
			g.segGlow[d][s] = min(1, float64(g.lit[d][s])*float64(len(g.digits))/n)
			g.lit[d][s] = 0
		}
	}
	g.samples = 0
	return nil
}

func glow(v float64) color.Color {
	return color.RGBA{R: uint8(40 + 215*v), G: uint8(20 * (1 - v)), B: uint8(20 * (1 - v)), A: 0xff}
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{0x10, 0x10, 0x10, 0xff})

	for i, v := range g.ledGlow {
		vector.DrawFilledCircle(screen, float32(40+i*40), 40, 14, glow(v), true)
	}

	// Digit 0 is rightmost.
	const w, h, t = 40, 80, 8
	for d := range g.digits {
		x := float32(screenWidth - 70 - d*70)
		y := float32(90)
		s := g.segGlow[d]
		vector.DrawFilledRect(screen, x+t, y, w-2*t, t, glow(s[0]), true)         // A
		vector.DrawFilledRect(screen, x+w-t, y+t, t, h/2-t, glow(s[1]), true)     // B
		vector.DrawFilledRect(screen, x+w-t, y+h/2, t, h/2-t, glow(s[2]), true)   // C
		vector.DrawFilledRect(screen, x+t, y+h-t, w-2*t, t, glow(s[3]), true)     // D
		vector.DrawFilledRect(screen, x, y+h/2, t, h/2-t, glow(s[4]), true)       // E
		vector.DrawFilledRect(screen, x, y+t, t, h/2-t, glow(s[5]), true)         // F
		vector.DrawFilledRect(screen, x+t, y+h/2-t/2, w-2*t, t, glow(s[6]), true) // G
		vector.DrawFilledCircle(screen, x+w+8, y+h-t/2, t/2+1, glow(s[7]), true)  // DP
	}
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func simPins(bank map[string]*tdm.SimPin, names []string) []*tdm.SimPin {
	pins := make([]*tdm.SimPin, len(names))
	for i, n := range names {
		pins[i] = bank[n]
	}
	return pins
}

func main() {
	flag.Parse()

	cfg, err := tdm.LoadConfigFile(*configPath)
	if err != nil {
		logrus.Fatalf("Loading config: %v", err)
	}
	cfg.Backend = tdm.BackendSim
	cfg.Charlieplex.Refresh.Period = tdm.Duration(float64(cfg.Charlieplex.Refresh.TickPeriod()) * *slow)
	cfg.SevenSegment.Refresh.Period = tdm.Duration(float64(cfg.SevenSegment.Refresh.TickPeriod()) * *slow)

	bank := make(map[string]*tdm.SimPin)
	open, _, err := cfg.OpenPins(bank)
	if err != nil {
		logrus.Fatalf("Opening simulated pins: %v", err)
	}
	leds, ledTicker, err := cfg.NewCharlieplex(open)
	if err != nil {
		logrus.Fatalf("Setting up charlieplex: %v", err)
	}
	display, digitTicker, err := cfg.NewSevenSegment(open)
	if err != nil {
		logrus.Fatalf("Setting up seven-segment display: %v", err)
	}
	ledEngine, err := tdm.NewEngine(leds, leds.State(), ledTicker)
	if err != nil {
		logrus.Fatalf("Setting up charlieplex refresh: %v", err)
	}
	digitEngine, err := tdm.NewEngine(display, display.State(), digitTicker)
	if err != nil {
		logrus.Fatalf("Setting up seven-segment refresh: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := &game{ctx: ctx, ss: cfg.SevenSegment}
	copy(g.charlie[:], simPins(bank, cfg.Charlieplex.Pins[:]))
	copy(g.segs[:], simPins(bank, cfg.SevenSegment.Segments[:]))
	g.digits = simPins(bank, cfg.SevenSegment.Digits)

	var wg sync.WaitGroup
	for _, run := range []func(){
		func() { g.sample(*sampleRate) },
		func() { leds.Demo(ctx, 150*time.Millisecond) },
		func() { display.Count(ctx, 50*time.Millisecond) },
		func() { _ = ledEngine.Run(ctx) },
		func() { _ = digitEngine.Run(ctx) },
	} {
		wg.Add(1)
		go func(run func()) {
			defer wg.Done()
			run()
		}(run)
	}

	ebiten.SetWindowTitle("tdm persistence of vision")
	ebiten.SetWindowSize(screenWidth*2, screenHeight*2)
	if err := ebiten.RunGame(g); err != nil {
		logrus.Errorf("Window: %v", err)
	}
	cancel()
	wg.Wait()
}
