package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/acquire/pkg/frame"
	"github.com/bft-labs/acquire/pkg/ring"
)

// Defaults for the acquisition harness.
const (
	DefaultCamera    = "simulated.*random"
	DefaultStorage   = "trash"
	DefaultFrames    = 100
	DefaultTimeLimit = 20 * time.Second
)

// Config holds CLI configuration for an acquisition run.
type Config struct {
	// PropertiesPath names a TOML properties file. When set, the device
	// and buffer flags below are ignored.
	PropertiesPath string

	Camera   string
	Storage  string
	Filename string
	Metadata string

	Width      int
	Height     int
	PixelType  string
	Binning    int
	ExposureUs float64

	FirstFrameID int
	Frames       int
	TimeLimit    time.Duration
	Throttle     time.Duration

	BufferBytes  int
	Overflow     string
	BlockTimeout time.Duration
	AutoDrain    bool

	// Graceful ends the run with Stop rather than Abort.
	Graceful bool
	// Watch reconfigures the runtime when PropertiesPath changes.
	Watch bool

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Camera:    DefaultCamera,
		Storage:   DefaultStorage,
		Width:     640,
		Height:    480,
		PixelType: "u8",
		Binning:   1,
		Frames:    DefaultFrames,
		TimeLimit: DefaultTimeLimit,
		Throttle:  15 * time.Millisecond,
		Overflow:  "block",
		LogLevel:  "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Frames < 0 {
		return fmt.Errorf("frames must not be negative")
	}
	if c.TimeLimit <= 0 {
		return fmt.Errorf("time limit must be positive")
	}
	if c.Throttle <= 0 {
		return fmt.Errorf("throttle must be positive")
	}
	if c.Watch && c.PropertiesPath == "" {
		return fmt.Errorf("watch requires a properties file")
	}
	if c.PropertiesPath != "" {
		return nil
	}

	if c.Camera == "" {
		return fmt.Errorf("camera is required")
	}
	if c.Storage == "" {
		return fmt.Errorf("storage is required")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("frame shape must be positive, got %dx%d", c.Width, c.Height)
	}
	if _, err := frame.ParseSampleType(c.PixelType); err != nil {
		return err
	}
	if c.Binning < 1 || c.Binning > 255 {
		return fmt.Errorf("binning must be in [1, 255], got %d", c.Binning)
	}
	if c.ExposureUs < 0 {
		return fmt.Errorf("exposure must not be negative")
	}
	if c.BufferBytes < 0 {
		return fmt.Errorf("buffer bytes must not be negative")
	}
	if _, err := ring.ParseOverflowPolicy(c.Overflow); err != nil {
		return err
	}
	if c.BlockTimeout < 0 {
		return fmt.Errorf("block timeout must not be negative")
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
