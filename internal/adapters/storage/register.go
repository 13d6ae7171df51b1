package storage

import (
	"github.com/bft-labs/acquire/internal/clock"
	"github.com/bft-labs/acquire/pkg/device"
)

// Names of the builtin storage devices.
const (
	NameTrash = "trash"
	NameRaw   = "raw"
	NameTiff  = "tiff"
)

// Register adds the builtin storage devices to m.
func Register(m *device.Manager, clk clock.Clock) error {
	factories := []struct {
		name string
		new  func() device.Device
	}{
		{NameTrash, func() device.Device { return NewTrash() }},
		{NameRaw, func() device.Device { return NewRaw(clk) }},
		{NameTiff, func() device.Device { return NewTiff(clk) }},
	}
	for _, f := range factories {
		newDevice := f.new
		_, err := m.Register(device.KindStorage, f.name, func() (device.Device, error) {
			return newDevice(), nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
