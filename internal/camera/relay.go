package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"
)

// MaxFramePixels caps the decoded size of a pushed frame. 4K UHD fits.
const MaxFramePixels = 4096 * 3072

// Relay is a Camera whose device lives in the browser. The page reports the
// outcome of its permission prompt with Permit and pushes video frames with
// Push; Open and Frame serve them to the capture machine.
type Relay struct {
	mu      sync.Mutex
	granted bool
	stream  *relayStream
}

func NewRelay() *Relay {
	return &Relay{}
}

// Permit records whether the browser was granted camera access.
func (r *Relay) Permit(granted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.granted = granted
}

func (r *Relay) Open(ctx context.Context, facing Facing) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DeviceError{Op: "open", Err: err}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.granted {
		return nil, &DeviceError{Op: "open", Err: ErrPermissionDenied}
	}
	if r.stream != nil {
		r.stream.stopLocked()
	}
	r.stream = &relayStream{relay: r, facing: facing, live: true}
	return r.stream, nil
}

// Push decodes an encoded frame (JPEG or PNG) and makes it the current frame
// of the open stream. Frames larger than MaxFramePixels are refused before
// their pixels are decoded.
func (r *Relay) Push(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode frame header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxFramePixels/cfg.Height {
		return &DeviceError{Op: "push", Err: fmt.Errorf("%w: %dx%d", ErrFrameTooLarge, cfg.Width, cfg.Height)}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode frame: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream == nil || !r.stream.live {
		return &DeviceError{Op: "push", Err: ErrStopped}
	}
	r.stream.frame = img
	return nil
}

// Live reports whether a stream is currently open.
func (r *Relay) Live() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil && r.stream.live
}

type relayStream struct {
	relay  *Relay
	facing Facing
	live   bool
	frame  image.Image
}

func (s *relayStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DeviceError{Op: "frame", Err: err}
	}
	s.relay.mu.Lock()
	defer s.relay.mu.Unlock()
	if !s.live {
		return nil, &DeviceError{Op: "frame", Err: ErrStopped}
	}
	if s.frame == nil {
		return nil, &DeviceError{Op: "frame", Err: ErrNoFrame}
	}
	return s.frame, nil
}

func (s *relayStream) Stop() {
	s.relay.mu.Lock()
	defer s.relay.mu.Unlock()
	s.stopLocked()
}

func (s *relayStream) stopLocked() {
	s.live = false
	s.frame = nil
	if s.relay.stream == s {
		s.relay.stream = nil
	}
}

func (s *relayStream) Live() bool {
	s.relay.mu.Lock()
	defer s.relay.mu.Unlock()
	return s.live
}
