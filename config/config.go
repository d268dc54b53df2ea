package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the top-level configuration struct.  All fields have safe defaults
// so callers can start with Default() and override only what they need.
type Config struct {
	// Capture defaults.
	CopyDPI       int    // resolution used by copy operations; default 300
	PreviewDPI    int    // resolution used by preview captures; default 75
	CopyColorMode string // "color", "grayscale", "monochrome"; default grayscale
	MaxPages      int    // feeder page cap per operation; 0 = unlimited

	// Composition.
	ComposeDPI int     // resolution of composed output canvases; default 300
	PaperSize  string  // default output paper; default "A4"
	MarginPt   float64 // outer margin of the two-up layout, points; default 20
	SpacingPt  float64 // gap between the two halves, points; default 20

	// Print.
	PrinterName   string // explicit sink identity; no hidden discovery
	DefaultCopies int

	// Progress delivery.
	EventQueueSize int // initial dispatcher queue capacity; default 64

	// Logging.
	LogLevel string // "debug", "info", "warn", "error"
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		CopyDPI:        300,
		PreviewDPI:     75,
		CopyColorMode:  "grayscale",
		ComposeDPI:     300,
		PaperSize:      "A4",
		MarginPt:       20,
		SpacingPt:      20,
		DefaultCopies:  1,
		EventQueueSize: 64,
		LogLevel:       "info",
	}
}

// FromEnv loads a .env file when present and overlays COPYFLOW_* variables on
// top of the defaults.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Default()
	if v := os.Getenv("COPYFLOW_COPY_DPI"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CopyDPI = n
		}
	}
	if v := os.Getenv("COPYFLOW_PREVIEW_DPI"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PreviewDPI = n
		}
	}
	if v := os.Getenv("COPYFLOW_COLOR_MODE"); v != "" {
		cfg.CopyColorMode = v
	}
	if v := os.Getenv("COPYFLOW_COMPOSE_DPI"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ComposeDPI = n
		}
	}
	if v := os.Getenv("COPYFLOW_PAPER_SIZE"); v != "" {
		cfg.PaperSize = v
	}
	if v := os.Getenv("COPYFLOW_PRINTER_NAME"); v != "" {
		cfg.PrinterName = v
	}
	if v := os.Getenv("COPYFLOW_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxPages = n
		}
	}
	if v := os.Getenv("COPYFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.CopyDPI <= 0 {
		return errors.New("config: CopyDPI must be positive")
	}
	if c.PreviewDPI <= 0 {
		return errors.New("config: PreviewDPI must be positive")
	}
	if c.ComposeDPI <= 0 {
		return errors.New("config: ComposeDPI must be positive")
	}
	if c.MarginPt < 0 || c.SpacingPt < 0 {
		return errors.New("config: layout margin and spacing must not be negative")
	}
	switch c.CopyColorMode {
	case "color", "grayscale", "monochrome":
	default:
		return errors.New("config: CopyColorMode must be color, grayscale or monochrome")
	}
	switch c.PaperSize {
	case "A4", "Letter", "Legal", "A5", "B5":
	default:
		return errors.New("config: PaperSize must be one of A4, Letter, Legal, A5, B5")
	}
	if c.DefaultCopies < 1 {
		return errors.New("config: DefaultCopies must be at least 1")
	}
	return nil
}
