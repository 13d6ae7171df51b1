package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Properties   string  `toml:"properties"`
	Camera       string  `toml:"camera"`
	Storage      string  `toml:"storage"`
	Filename     string  `toml:"filename"`
	Metadata     string  `toml:"external_metadata_json"`
	Width        int     `toml:"width"`
	Height       int     `toml:"height"`
	PixelType    string  `toml:"pixel_type"`
	Binning      int     `toml:"binning"`
	ExposureUs   float64 `toml:"exposure_time_us"`
	FirstFrameID int     `toml:"first_frame_id"`
	Frames       int     `toml:"frames"`
	TimeLimit    string  `toml:"time_limit"`
	Throttle     string  `toml:"throttle"`
	BufferBytes  int     `toml:"buffer_bytes"`
	Overflow     string  `toml:"overflow"`
	BlockTimeout string  `toml:"block_timeout"`
	AutoDrain    *bool   `toml:"auto_drain"`
	Graceful     *bool   `toml:"graceful"`
	Watch        *bool   `toml:"watch"`
	LogLevel     string  `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.acquire/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".acquire", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("properties", fc.Properties, &cfg.PropertiesPath)
	s.setString("camera", fc.Camera, &cfg.Camera)
	s.setString("storage", fc.Storage, &cfg.Storage)
	s.setString("filename", fc.Filename, &cfg.Filename)
	s.setString("metadata", fc.Metadata, &cfg.Metadata)
	s.setString("pixel-type", fc.PixelType, &cfg.PixelType)
	s.setString("overflow", fc.Overflow, &cfg.Overflow)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("time-limit", fc.TimeLimit, &cfg.TimeLimit); err != nil {
		return err
	}
	if err := s.setDuration("throttle", fc.Throttle, &cfg.Throttle); err != nil {
		return err
	}
	if err := s.setDuration("block-timeout", fc.BlockTimeout, &cfg.BlockTimeout); err != nil {
		return err
	}

	s.setFloat("exposure-us", fc.ExposureUs, &cfg.ExposureUs)

	s.setInt("width", fc.Width, &cfg.Width)
	s.setInt("height", fc.Height, &cfg.Height)
	s.setInt("binning", fc.Binning, &cfg.Binning)
	s.setInt("first-frame-id", fc.FirstFrameID, &cfg.FirstFrameID)
	s.setInt("frames", fc.Frames, &cfg.Frames)
	s.setInt("buffer-bytes", fc.BufferBytes, &cfg.BufferBytes)

	s.setBool("auto-drain", fc.AutoDrain, &cfg.AutoDrain)
	s.setBool("graceful", fc.Graceful, &cfg.Graceful)
	s.setBool("watch", fc.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
