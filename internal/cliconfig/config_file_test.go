package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name    string
		initial Config
		file    FileConfig
		changed map[string]bool
		check   func(t *testing.T, cfg Config)
		wantErr bool
	}{
		{
			name:    "fills unset values",
			initial: DefaultConfig(),
			file: FileConfig{
				Camera:     "simulated.*sin",
				Storage:    "raw",
				Filename:   "out.bin",
				Width:      128,
				ExposureUs: 500,
				TimeLimit:  "3s",
				Watch:      &trueVal,
			},
			changed: map[string]bool{},
			check: func(t *testing.T, cfg Config) {
				if cfg.Camera != "simulated.*sin" {
					t.Errorf("Camera = %v", cfg.Camera)
				}
				if cfg.Storage != "raw" || cfg.Filename != "out.bin" {
					t.Errorf("Storage = %v, Filename = %v", cfg.Storage, cfg.Filename)
				}
				if cfg.Width != 128 || cfg.Height != 480 {
					t.Errorf("shape = %dx%d, want 128x480", cfg.Width, cfg.Height)
				}
				if cfg.ExposureUs != 500 {
					t.Errorf("ExposureUs = %v", cfg.ExposureUs)
				}
				if cfg.TimeLimit != 3*time.Second {
					t.Errorf("TimeLimit = %v", cfg.TimeLimit)
				}
				if !cfg.Watch {
					t.Error("Watch = false, want true")
				}
			},
		},
		{
			name:    "changed flags keep their values",
			initial: Config{Camera: "cli", Frames: 3},
			file:    FileConfig{Camera: "file", Frames: 50},
			changed: map[string]bool{"camera": true, "frames": true},
			check: func(t *testing.T, cfg Config) {
				if cfg.Camera != "cli" || cfg.Frames != 3 {
					t.Errorf("Camera = %v, Frames = %v, CLI should win", cfg.Camera, cfg.Frames)
				}
			},
		},
		{
			name:    "bad duration",
			initial: DefaultConfig(),
			file:    FileConfig{Throttle: "soon"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.file, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
camera = "Kinetix"
storage = "tiff"
pixel_type = "u16"
frames = 100
time_limit = "20s"
exposure_time_us = 10000.0
graceful = true
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Camera != "Kinetix" {
		t.Errorf("Camera = %v, want Kinetix", fc.Camera)
	}
	if fc.Storage != "tiff" {
		t.Errorf("Storage = %v, want tiff", fc.Storage)
	}
	if fc.PixelType != "u16" {
		t.Errorf("PixelType = %v, want u16", fc.PixelType)
	}
	if fc.Frames != 100 {
		t.Errorf("Frames = %v, want 100", fc.Frames)
	}
	if fc.TimeLimit != "20s" {
		t.Errorf("TimeLimit = %v, want 20s", fc.TimeLimit)
	}
	if fc.ExposureUs != 10000 {
		t.Errorf("ExposureUs = %v, want 10000", fc.ExposureUs)
	}
	if fc.Graceful == nil || *fc.Graceful != true {
		t.Errorf("Graceful = %v, want true", fc.Graceful)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
camera = "simulated"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".acquire") {
		t.Errorf("DefaultConfigPath() = %v, should contain .acquire", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
