// Command lcd writes two lines of text to an HD44780 character LCD wired in
// 4-bit mode.
package main

import (
	"flag"

	"github.com/DrJosh9000/tdm"
	"github.com/sirupsen/logrus"
)

var (
	configPath = flag.String("config", "", "JSON configuration file (defaults if empty)")
	backend    = flag.String("backend", "", "pin backend: periph, rpio, gpiocdev or sim")
	line1      = flag.String("line1", "Hello, World!", "text for the first line")
	line2      = flag.String("line2", "This is LCD", "text for the second line")
)

func main() {
	flag.Parse()

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

	lcd, err := cfg.NewLCD(open)
	if err != nil {
		logrus.Fatalf("Setting up LCD: %v", err)
	}
	if err := lcd.Init(); err != nil {
		logrus.Fatalf("Initialising LCD: %v", err)
	}
	if err := lcd.WriteString(*line1, 0, 2, 16); err != nil {
		logrus.Errorf("Writing line 1: %v", err)
	}
	if err := lcd.WriteString(*line2, 1, 3, 16); err != nil {
		logrus.Errorf("Writing line 2: %v", err)
	}
	logrus.Info("LCD updated")
}
