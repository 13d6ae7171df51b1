// Package domain contains the error taxonomy and stream status values shared
// by the acquisition runtime.
//
// This package is the innermost layer. It has no dependencies on devices,
// buffers, or logging and contains only values that cross package
// boundaries.
//
// # Errors
//
// Every error returned by the public API wraps one of the sentinels in this
// package, so callers test with errors.Is:
//
//	if errors.Is(err, domain.ErrNoMatchingDevice) { ... }
//
// Structured detail is available with errors.As on [ValidationError] and
// [DeviceFaultError].
package domain
