// Package camera models a capture device: opening a stream, reading still
// frames from it and releasing it.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
)

type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoFrame          = errors.New("no frame available")
	ErrStopped          = errors.New("stream stopped")
	ErrFrameTooLarge    = errors.New("frame too large")
)

// DeviceError reports that the camera could not be used: permission was
// refused or the hardware is unavailable.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Camera opens streams. Open may block while the user answers a permission
// prompt.
type Camera interface {
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Stream is a live capture session. Stop releases every underlying track and
// is safe to call more than once.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Stop()
	Live() bool
}
