package cliconfig

import (
	"os"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "ACQUIRE_"

// ApplyEnvConfig applies ACQUIRE_* environment variables to cfg. Flags in
// changed keep their command line values.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("properties", env("PROPERTIES"), &cfg.PropertiesPath)
	s.setString("camera", env("CAMERA"), &cfg.Camera)
	s.setString("storage", env("STORAGE"), &cfg.Storage)
	s.setString("filename", env("FILENAME"), &cfg.Filename)
	s.setString("metadata", env("METADATA"), &cfg.Metadata)
	s.setString("pixel-type", env("PIXEL_TYPE"), &cfg.PixelType)
	s.setString("overflow", env("OVERFLOW"), &cfg.Overflow)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	for _, d := range []struct {
		flag, name string
		dst        *time.Duration
	}{
		{"time-limit", "TIME_LIMIT", &cfg.TimeLimit},
		{"throttle", "THROTTLE", &cfg.Throttle},
		{"block-timeout", "BLOCK_TIMEOUT", &cfg.BlockTimeout},
	} {
		if err := s.setDuration(d.flag, env(d.name), d.dst); err != nil {
			return err
		}
	}

	if err := s.setFloatFromString("exposure-us", env("EXPOSURE_US"), &cfg.ExposureUs); err != nil {
		return err
	}

	for _, i := range []struct {
		flag, name string
		dst        *int
	}{
		{"width", "WIDTH", &cfg.Width},
		{"height", "HEIGHT", &cfg.Height},
		{"binning", "BINNING", &cfg.Binning},
		{"first-frame-id", "FIRST_FRAME_ID", &cfg.FirstFrameID},
		{"frames", "FRAMES", &cfg.Frames},
		{"buffer-bytes", "BUFFER_BYTES", &cfg.BufferBytes},
	} {
		if err := s.setIntFromString(i.flag, env(i.name), i.dst); err != nil {
			return err
		}
	}

	s.setBoolFromString("auto-drain", env("AUTO_DRAIN"), &cfg.AutoDrain)
	s.setBoolFromString("graceful", env("GRACEFUL"), &cfg.Graceful)
	s.setBoolFromString("watch", env("WATCH"), &cfg.Watch)

	return nil
}
