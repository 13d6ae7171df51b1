package camera

import (
	"github.com/bft-labs/acquire/internal/clock"
	"github.com/bft-labs/acquire/pkg/device"
)

// Names of the builtin simulated cameras.
const (
	NameEmpty     = "simulated: empty"
	NameRandom    = "simulated: random"
	NameRadialSin = "simulated: radial sin"
)

// Register adds the builtin simulated cameras to m.
func Register(m *device.Manager, clk clock.Clock) error {
	for _, c := range []struct {
		name    string
		pattern Pattern
	}{
		{NameEmpty, PatternEmpty},
		{NameRandom, PatternRandom},
		{NameRadialSin, PatternRadialSin},
	} {
		name, pattern := c.name, c.pattern
		_, err := m.Register(device.KindCamera, name, func() (device.Device, error) {
			return NewSimulated(name, pattern, clk), nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
