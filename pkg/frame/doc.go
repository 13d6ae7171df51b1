// Package frame defines the video frame record shared across the ring buffer
// boundary.
//
// A record is a fixed 56-byte little-endian header followed by the pixel
// payload, padded to an 8-byte boundary. The header's bytes_of_frame field is
// the total record length, so a consumer can walk a run of records without
// knowing anything about the camera that produced them.
//
// # Walking a mapped range
//
//	it := rng.Iter()
//	for it.Next() {
//	    f := it.Frame()
//	    fmt.Println(f.FrameID, f.Shape.Width, f.Shape.Height)
//	}
//	if err := it.Err(); err != nil {
//	    return err
//	}
//
// Frames returned by an iterator alias the mapped memory; copy anything that
// must outlive the unmap.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package frame
