// Package acquire streams video frames from cameras into storage devices
// through bounded ring buffers.
//
// Example usage:
//
//	rt, err := acquire.Init()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Shutdown()
//
//	dm := rt.DeviceManager()
//	cam, _ := dm.Select(device.KindCamera, "radial sin")
//	st, _ := dm.Select(device.KindStorage, "trash")
//
//	var props acquire.Properties
//	props.Video[0].Camera.Identifier = cam
//	props.Video[0].Storage.Identifier = st
//	props.Video[0].Camera.Settings.Shape = device.Point2{X: 640, Y: 480}
//	props.Video[0].Camera.Settings.Binning = 1
//	props.Video[0].MaxFrameCount = 10
//	if _, err := rt.Configure(props); err != nil {
//	    log.Fatal(err)
//	}
//	if err := rt.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The full API lives in pkg/acquire; this package re-exports the parts most
// programs need.
package acquire

import (
	"github.com/bft-labs/acquire/pkg/acquire"
)

// Runtime owns the devices and streams of an acquisition session.
type Runtime = acquire.Runtime

// Properties is the full runtime configuration.
type Properties = acquire.Properties

// VideoStream configures one camera to storage stream.
type VideoStream = acquire.VideoStream

// Option configures Init.
type Option = acquire.Option

// State is the runtime lifecycle state.
type State = acquire.State

// StreamStats reports the counters of one running stream.
type StreamStats = acquire.StreamStats

// Init creates a Runtime with the builtin simulated devices registered.
func Init(opts ...Option) (*Runtime, error) {
	return acquire.Init(opts...)
}

// LoadProperties reads a TOML properties file and resolves its device
// selectors against rt's device registry.
func LoadProperties(rt *Runtime, path string) (Properties, error) {
	pf, err := acquire.LoadPropertiesFile(path)
	if err != nil {
		return Properties{}, err
	}
	return pf.Resolve(rt.DeviceManager())
}

// Errors re-exported for errors.Is checks.
var (
	ErrValidation               = acquire.ErrValidation
	ErrNoMatchingDevice         = acquire.ErrNoMatchingDevice
	ErrInvalidStateForOperation = acquire.ErrInvalidStateForOperation
	ErrPartialFrameRelease      = acquire.ErrPartialFrameRelease
	ErrDeviceFault              = acquire.ErrDeviceFault
)

// Version is the library version.
const Version = acquire.Version
