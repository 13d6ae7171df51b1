// Package device defines the capability interfaces shared by camera and
// storage drivers and the registry used to find them by name.
//
// # Selecting a device
//
//	dm := device.NewManager()
//	dm.Register(device.KindCamera, "simulated: random", newRandomCamera)
//	id, err := dm.Select(device.KindCamera, ".*random.*")
//	if errors.Is(err, acquire.ErrNoMatchingDevice) { ... }
//
// Selection is deterministic: with the default policy the first device in
// registration order whose name matches wins.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package device
