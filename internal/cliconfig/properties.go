package cliconfig

import (
	"fmt"

	"github.com/bft-labs/acquire/pkg/acquire"
	"github.com/bft-labs/acquire/pkg/device"
	"github.com/bft-labs/acquire/pkg/frame"
	"github.com/bft-labs/acquire/pkg/ring"
)

// Properties builds runtime properties from the configuration. A properties
// file, when named, is resolved against dm; otherwise a single stream is
// built from the device and buffer settings. Validate must have succeeded.
func (c Config) Properties(dm *device.Manager) (acquire.Properties, error) {
	if c.PropertiesPath != "" {
		pf, err := acquire.LoadPropertiesFile(c.PropertiesPath)
		if err != nil {
			return acquire.Properties{}, err
		}
		return pf.Resolve(dm)
	}

	var props acquire.Properties
	cam, err := dm.Select(device.KindCamera, c.Camera)
	if err != nil {
		return props, fmt.Errorf("camera: %w", err)
	}
	st, err := dm.Select(device.KindStorage, c.Storage)
	if err != nil {
		return props, fmt.Errorf("storage: %w", err)
	}
	pixel, err := frame.ParseSampleType(c.PixelType)
	if err != nil {
		return props, err
	}
	policy, err := ring.ParseOverflowPolicy(c.Overflow)
	if err != nil {
		return props, err
	}

	props.Video[0] = acquire.VideoStream{
		Camera: acquire.CameraStream{
			Identifier: cam,
			Settings: device.CameraProperties{
				ExposureTimeUs: c.ExposureUs,
				Binning:        uint8(c.Binning),
				PixelType:      pixel,
				Shape:          device.Point2{X: uint32(c.Width), Y: uint32(c.Height)},
			},
		},
		Storage: acquire.StorageStream{
			Identifier: st,
			Settings: device.StorageProperties{
				Filename:             c.Filename,
				ExternalMetadataJSON: c.Metadata,
				FirstFrameID:         uint64(c.FirstFrameID),
			},
		},
		MaxFrameCount: uint64(c.Frames),
		Buffer: acquire.BufferProperties{
			CapacityBytes: c.BufferBytes,
			Overflow:      policy,
			BlockTimeout:  c.BlockTimeout,
			AutoDrain:     c.AutoDrain,
		},
	}
	return props, nil
}
