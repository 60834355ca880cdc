// Package capture implements the image acquisition state machine: camera
// capture or file upload, preview, submission and result display.
package capture

import (
	"bytes"
	"context"
	"image/jpeg"
	"io"
	"log/slog"
	"sync"

	"github.com/vbonduro/betelcare/internal/backend"
	"github.com/vbonduro/betelcare/internal/camera"
	"github.com/vbonduro/betelcare/internal/domain"
)

// jpegQuality is the encoding quality of camera snapshots.
const jpegQuality = 90

// previewRepository is the subset of previewstore.PreviewStore the machine
// needs to create and release preview references.
type previewRepository interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// ResultHook is called after a successful transition to ResultReady.
type ResultHook func(ctx context.Context, result *domain.DiagnosisResult)

type Option func(*Machine)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// WithPreviewPrefix names the previews this machine creates.
func WithPreviewPrefix(prefix string) Option {
	return func(m *Machine) { m.prefix = prefix }
}

func WithResultHook(hook ResultHook) Option {
	return func(m *Machine) { m.onResult = hook }
}

// Machine owns the selected image, its single live preview reference and the
// camera stream. Operations invalid for the current state are no-ops.
// Mutations are serialised by mu; device and network calls run outside it
// and are discarded on return if gen moved on in the meantime.
type Machine struct {
	mu      sync.Mutex
	state   State
	image   *domain.Image
	stashed *domain.Image // image held aside while the camera is live
	preview string
	stream  camera.Stream
	result  *domain.DiagnosisResult
	notice  Notice
	gen     uint64
	opening bool
	closed  bool

	camera    camera.Camera
	predictor backend.Predictor
	previews  previewRepository
	prefix    string
	onResult  ResultHook
	logger    *slog.Logger
}

func New(cam camera.Camera, predictor backend.Predictor, previews previewRepository, opts ...Option) *Machine {
	m := &Machine{
		camera:    cam,
		predictor: predictor,
		previews:  previews,
		prefix:    "preview",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:      m.state,
		Image:      m.image,
		PreviewKey: m.preview,
		Result:     m.result,
		Notice:     m.notice,
		CameraLive: m.stream != nil,
	}
}

// StartCamera opens the rear camera. Valid from Idle, ImageSelected and
// ResultReady. A selected image is held aside and comes back if the camera
// is stopped without capturing. On a device error the state is unchanged and
// the camera-unavailable notice is raised.
func (m *Machine) StartCamera(ctx context.Context) {
	m.mu.Lock()
	if m.closed || m.opening {
		m.mu.Unlock()
		return
	}
	switch m.state {
	case Idle, ImageSelected, ResultReady:
	default:
		m.mu.Unlock()
		return
	}
	m.opening = true
	gen := m.gen
	m.mu.Unlock()

	stream, err := m.camera.Open(ctx, camera.FacingEnvironment)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.opening = false

	if err != nil {
		if !m.closed && gen == m.gen {
			m.notice = NoticeCameraUnavailable
		}
		m.logger.Warn("camera unavailable", "error", err)
		return
	}
	if m.closed || gen != m.gen {
		stream.Stop()
		return
	}

	m.releasePreviewLocked(ctx)
	m.result = nil
	if m.image != nil {
		m.stashed = m.image
		m.image = nil
	}
	m.stream = stream
	m.notice = NoticeNone
	m.transitionLocked(CameraActive)
}

// CapturePhoto snapshots the current frame as a JPEG, makes it the selected
// image and stops the camera.
func (m *Machine) CapturePhoto(ctx context.Context) {
	m.mu.Lock()
	if m.closed || m.state != CameraActive {
		m.mu.Unlock()
		return
	}
	stream := m.stream
	gen := m.gen
	m.mu.Unlock()

	data, err := snapshotJPEG(ctx, stream)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || gen != m.gen {
		return
	}
	if err != nil {
		m.notice = NoticeCameraUnavailable
		m.logger.Warn("camera capture failed", "error", err)
		return
	}

	m.stopStreamLocked()
	m.stashed = nil
	m.image = &domain.Image{Data: data, MimeType: "image/jpeg"}
	m.createPreviewLocked(ctx)
	m.notice = NoticeNone
	m.transitionLocked(ImageSelected)
}

// StopCamera releases the stream and returns to the held-aside image, if any.
func (m *Machine) StopCamera(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.state != CameraActive {
		return
	}

	m.stopStreamLocked()
	if m.stashed != nil {
		m.image = m.stashed
		m.stashed = nil
		m.createPreviewLocked(ctx)
		m.transitionLocked(ImageSelected)
		return
	}
	m.transitionLocked(Idle)
}

// SelectFile replaces the selected image with img. Valid in every state
// except Submitting; any live camera is stopped and a shown result is
// discarded. An empty image is ignored.
func (m *Machine) SelectFile(ctx context.Context, img domain.Image) {
	if img.Empty() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.state == Submitting {
		return
	}

	m.stopStreamLocked()
	m.stashed = nil
	m.releasePreviewLocked(ctx)
	m.image = &domain.Image{Data: img.Data, MimeType: img.MimeType}
	m.result = nil
	m.createPreviewLocked(ctx)
	m.notice = NoticeNone
	m.transitionLocked(ImageSelected)
}

// RemoveImage drops the selected image and any result.
func (m *Machine) RemoveImage(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	switch m.state {
	case ImageSelected, ResultReady:
	default:
		return
	}

	m.releasePreviewLocked(ctx)
	m.image = nil
	m.result = nil
	m.notice = NoticeNone
	m.transitionLocked(Idle)
}

// Submit sends the selected image to the predictor once. A call made while a
// submission is in flight is a no-op. On failure the image is kept and the
// machine returns to ImageSelected with the prediction-failed notice.
func (m *Machine) Submit(ctx context.Context) {
	m.mu.Lock()
	if m.closed || m.state != ImageSelected || m.image.Empty() {
		m.mu.Unlock()
		return
	}
	img := m.image
	m.notice = NoticeNone
	m.transitionLocked(Submitting)
	gen := m.gen
	m.mu.Unlock()

	m.logger.Info("prediction started", "mime_type", img.MimeType, "bytes", len(img.Data))
	result, err := m.predictor.Predict(ctx, img.Data, img.MimeType)

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		m.logger.Debug("dropping late prediction response")
		return
	}
	if err != nil {
		m.notice = NoticePredictionFailed
		m.transitionLocked(ImageSelected)
		m.mu.Unlock()
		m.logger.Warn("prediction failed",
			"network", backend.IsNetwork(err),
			"protocol", backend.IsProtocol(err),
			"error", err,
		)
		return
	}
	m.result = result
	m.transitionLocked(ResultReady)
	hook := m.onResult
	m.mu.Unlock()

	primary := result.Primary()
	m.logger.Info("prediction complete", "label", primary.Label, "confidence", primary.Confidence, "severity", result.Severity)
	if hook != nil {
		hook(ctx, result)
	}
}

// Close tears the machine down: the camera is stopped and the preview
// released whatever the state. Responses that arrive afterwards are dropped.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.stopStreamLocked()
	m.releasePreviewLocked(context.Background())
	m.image = nil
	m.stashed = nil
	m.result = nil
	m.transitionLocked(Idle)
}

func (m *Machine) transitionLocked(to State) {
	if m.state != to {
		m.logger.Debug("capture transition", "from", m.state.String(), "to", to.String())
	}
	m.state = to
	m.gen++
}

func (m *Machine) stopStreamLocked() {
	if m.stream == nil {
		return
	}
	m.stream.Stop()
	m.stream = nil
}

func (m *Machine) createPreviewLocked(ctx context.Context) {
	if m.image.Empty() {
		return
	}
	key, err := m.previews.Save(ctx, m.prefix, m.image.MimeType, bytes.NewReader(m.image.Data))
	if err != nil {
		m.logger.Error("failed to create preview", "error", err)
		return
	}
	m.preview = key
}

// releasePreviewLocked clears the reference before deleting so that it is
// released exactly once.
func (m *Machine) releasePreviewLocked(ctx context.Context) {
	if m.preview == "" {
		return
	}
	key := m.preview
	m.preview = ""
	if err := m.previews.Delete(ctx, key); err != nil {
		m.logger.Error("failed to release preview", "key", key, "error", err)
	}
}

func snapshotJPEG(ctx context.Context, stream camera.Stream) ([]byte, error) {
	frame, err := stream.Frame(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, &camera.DeviceError{Op: "encode", Err: err}
	}
	return buf.Bytes(), nil
}
