package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDevicesCommand(t *testing.T) {
	out, err := execute(t, "devices")
	require.NoError(t, err)

	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "simulated: radial sin")
	assert.Contains(t, out, "trash")

	out, err = execute(t, "devices", "--kind", "storage")
	require.NoError(t, err)
	assert.NotContains(t, out, "simulated")
	assert.Contains(t, out, "tiff")

	_, err = execute(t, "devices", "--kind", "microscope")
	assert.Error(t, err)
}

func TestRunThenInspect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	out, err := execute(t,
		"--config", filepath.Join(dir, "missing.toml"),
		"--camera", "radial sin",
		"--storage", "raw",
		"--filename", path,
		"--width", "32",
		"--height", "16",
		"--frames", "5",
		"--time-limit", "10s",
		"--throttle", "1ms",
		"--graceful",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "stream 0: simulated: radial sin -> raw")
	assert.Contains(t, out, "read     5 frames, ids 0..4, 0 gaps")
	assert.Contains(t, out, "captured 5 frames, dropped 0")

	out, err = execute(t, "inspect", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "5 frames, ids 0..4, 0 gaps"), lines[0])
	assert.Equal(t, "shape: 32x16 u8", lines[1])

	out, err = execute(t, "inspect", "-v", path)
	require.NoError(t, err)
	assert.Contains(t, out, "frame 4: 32x16 u8")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config", filepath.Join(dir, "missing.toml"), "--overflow", "spill")
	assert.Error(t, err)

	_, err = execute(t, "--config", filepath.Join(dir, "missing.toml"), "--camera", "Kinetix", "--time-limit", "1s")
	assert.ErrorContains(t, err, "no matching device")
}

func TestInspectMissingFile(t *testing.T) {
	_, err := execute(t, "inspect", filepath.Join(t.TempDir(), "nope.bin"))
	assert.Error(t, err)
}
