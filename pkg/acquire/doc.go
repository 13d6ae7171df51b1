// Package acquire is a video acquisition runtime. It pulls frames from a
// camera into a per-stream ring buffer and hands them to the caller without
// copying, then forwards released frames to a storage device.
//
// # Basic Usage
//
//	rt, err := acquire.Init(acquire.WithReporter(report))
//	if err != nil {
//	    return err
//	}
//	defer rt.Shutdown()
//
//	dm := rt.DeviceManager()
//	props, _ := rt.GetConfiguration()
//	props.Video[0].Camera.Identifier, _ = dm.Select(device.KindCamera, ".*random.*")
//	props.Video[0].Storage.Identifier, _ = dm.Select(device.KindStorage, "trash")
//	props.Video[0].Camera.Settings = device.CameraProperties{
//	    Binning: 1, PixelType: frame.SampleU16, Shape: device.Point2{X: 640, Y: 480},
//	}
//	props.Video[0].MaxFrameCount = 100
//	if _, err := rt.Configure(props); err != nil {
//	    return err
//	}
//
//	if err := rt.Start(ctx); err != nil {
//	    return err
//	}
//	rng, _ := rt.MapRead(0)
//	it := rng.Iter()
//	for it.Next() {
//	    f := it.Frame()
//	    // ...
//	}
//	_ = rt.UnmapRead(0, it.Offset())
//	_ = rt.Abort()
//
// # Lifecycle
//
// A Runtime moves through Uninitialized, Configured, Running, Stopping and
// Aborting. Configure and GetConfiguration are rejected with
// ErrInvalidStateForOperation while an acquisition is running. Stop flushes
// unread frames to storage; Abort discards them.
//
// # Overflow
//
// When the consumer falls behind, the Block policy (default) holds capture
// until space is released and the Drop policy discards the incoming frame.
// A dropped frame still takes a frame id, so gaps in ids equal the drop
// count.
//
// # Plugins and Events
//
// Plugins passed with WithPlugin are initialized by Init and shut down by
// Shutdown in reverse order. WithEventHandler receives state changes, run
// boundaries and device faults. The propertieswatcher plugin reapplies a
// properties file whenever it changes.
package acquire
