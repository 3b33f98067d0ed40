// Command sevenseg counts from 0000 to 9999 on a multiplexed four digit
// seven-segment display, or shows a fixed string.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/DrJosh9000/tdm"
	"github.com/sirupsen/logrus"
)

var (
	configPath = flag.String("config", "", "JSON configuration file (defaults if empty)")
	backend    = flag.String("backend", "", "pin backend: periph, rpio, gpiocdev or sim")
	step       = flag.Duration("step", 50*time.Millisecond, "count interval")
	text       = flag.String("text", "", "show this instead of counting, e.g. 12.34")
	verbose    = flag.Bool("verbose", false, "enable debug logging")
)

func main() {
	flag.Parse()
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg, err := tdm.LoadConfigFile(*configPath)
	if err != nil {
		logrus.Fatalf("Loading config: %v", err)
	}
	if *backend != "" {
		cfg.Backend = *backend
	}

	open, release, err := cfg.OpenPins(nil)
	if err != nil {
		logrus.Fatalf("Opening %s pins: %v", cfg.Backend, err)
	}
	defer func() {
		if err := release(); err != nil {
			logrus.Errorf("Releasing pins: %v", err)
		}
	}()

	display, ticker, err := cfg.NewSevenSegment(open)
	if err != nil {
		logrus.Fatalf("Setting up seven-segment display: %v", err)
	}
	engine, err := tdm.NewEngine(display, display.State(), ticker)
	if err != nil {
		logrus.Fatalf("Setting up refresh: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logrus.WithFields(logrus.Fields{
		"backend": cfg.Backend,
		"digits":  len(cfg.SevenSegment.Digits),
	}).Info("Starting seven-segment demo")
	if *text != "" {
		display.Display(*text)
	} else {
		go display.Count(ctx, *step)
	}
	if err := engine.Run(ctx); err != nil {
		logrus.Errorf("Refresh: %v", err)
	}
}
