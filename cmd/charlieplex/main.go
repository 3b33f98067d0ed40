// Command charlieplex animates six charlieplexed LEDs on three GPIO lines.
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
	step       = flag.Duration("step", 150*time.Millisecond, "animation step")
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

	leds, ticker, err := cfg.NewCharlieplex(open)
	if err != nil {
		logrus.Fatalf("Setting up charlieplex: %v", err)
	}
	engine, err := tdm.NewEngine(leds, leds.State(), ticker)
	if err != nil {
		logrus.Fatalf("Setting up refresh: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logrus.WithFields(logrus.Fields{
		"backend": cfg.Backend,
		"pins":    cfg.Charlieplex.Pins,
	}).Info("Starting charlieplex demo")
	go leds.Demo(ctx, *step)
	if err := engine.Run(ctx); err != nil {
		logrus.Errorf("Refresh: %v", err)
	}
}
