package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/betelcare/internal/backend"
	"github.com/vbonduro/betelcare/internal/camera"
	"github.com/vbonduro/betelcare/internal/domain"
	"github.com/vbonduro/betelcare/internal/logging"
)

var leafJPEG = domain.Image{Data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01}, MimeType: "image/jpeg"}
var leafPNG = domain.Image{Data: []byte{0x89, 'P', 'N', 'G', 0x02}, MimeType: "image/png"}

func blightResult() *domain.DiagnosisResult {
	return &domain.DiagnosisResult{
		Severity: "Severe Rot",
		Advice:   "Remove affected leaves",
		TopPredictions: []domain.Prediction{
			{Label: "Leaf Blight", Confidence: 92},
			{Label: "Healthy", Confidence: 8},
		},
	}
}

// fakeStream counts Stop calls and serves a fixed frame.
type fakeStream struct {
	mu       sync.Mutex
	frame    image.Image
	frameErr error
	stops    int
}

func (s *fakeStream) Frame(context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frameErr != nil {
		return nil, s.frameErr
	}
	return s.frame, nil
}

func (s *fakeStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *fakeStream) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops == 0
}

func (s *fakeStream) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

type fakeCamera struct {
	mu      sync.Mutex
	err     error
	gate    chan struct{} // when set, Open waits for it to close
	opens   int
	streams []*fakeStream
}

func (c *fakeCamera) Open(ctx context.Context, facing camera.Facing) (camera.Stream, error) {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
	if c.err != nil {
		return nil, c.err
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(2, 2, color.RGBA{G: 180, A: 255})
	s := &fakeStream{frame: img}
	c.streams = append(c.streams, s)
	return s, nil
}

func (c *fakeCamera) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

func (c *fakeCamera) Last() *fakeStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.streams) == 0 {
		return nil
	}
	return c.streams[len(c.streams)-1]
}

type fakePredictor struct {
	mu     sync.Mutex
	result *domain.DiagnosisResult
	err    error
	gate   chan struct{}
	calls  int
}

func (p *fakePredictor) Predict(ctx context.Context, img []byte, mimeType string) (*domain.DiagnosisResult, error) {
	p.mu.Lock()
	p.calls++
	gate := p.gate
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return p.result, p.err
}

func (p *fakePredictor) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakePreviews records every save and how often each key was released.
type fakePreviews struct {
	mu       sync.Mutex
	counter  int
	live     map[string][]byte
	released map[string]int
}

func newFakePreviews() *fakePreviews {
	return &fakePreviews{live: make(map[string][]byte), released: make(map[string]int)}
}

func (f *fakePreviews) Save(_ context.Context, prefix, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	key := fmt.Sprintf("%s_%d", prefix, f.counter)
	f.live[key] = data
	return key, nil
}

func (f *fakePreviews) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released[key]++
	if _, ok := f.live[key]; !ok {
		return errors.New("not found")
	}
	delete(f.live, key)
	return nil
}

func (f *fakePreviews) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

func (f *fakePreviews) Released(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released[key]
}

type fixture struct {
	m        *Machine
	cam      *fakeCamera
	pred     *fakePredictor
	previews *fakePreviews
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		cam:      &fakeCamera{},
		pred:     &fakePredictor{result: blightResult()},
		previews: newFakePreviews(),
	}
	opts = append([]Option{WithLogger(logging.Discard()), WithPreviewPrefix("s1")}, opts...)
	f.m = New(f.cam, f.pred, f.previews, opts...)
	t.Cleanup(f.m.Close)
	return f
}

// driveTo puts the machine in the requested state. For Submitting the
// predictor is left blocked; the returned func releases it.
func driveTo(t *testing.T, f *fixture, state State) func() {
	t.Helper()
	ctx := context.Background()
	release := func() {}

	switch state {
	case Idle:
	case CameraActive:
		f.m.StartCamera(ctx)
	case ImageSelected:
		f.m.SelectFile(ctx, leafJPEG)
	case Submitting:
		f.m.SelectFile(ctx, leafJPEG)
		gate := make(chan struct{})
		f.pred.mu.Lock()
		f.pred.gate = gate
		f.pred.mu.Unlock()
		done := make(chan struct{})
		go func() {
			defer close(done)
			f.m.Submit(ctx)
		}()
		require.Eventually(t, func() bool { return f.m.Snapshot().State == Submitting }, time.Second, time.Millisecond)
		var once sync.Once
		release = func() {
			once.Do(func() {
				close(gate)
				<-done
			})
		}
		t.Cleanup(release)
	case ResultReady:
		f.m.SelectFile(ctx, leafJPEG)
		f.m.Submit(ctx)
	}
	require.Equal(t, state, f.m.Snapshot().State)
	return release
}

func TestInvalidOperationsAreNoOps(t *testing.T) {
	ctx := context.Background()
	ops := map[string]func(m *Machine){
		"StartCamera":  func(m *Machine) { m.StartCamera(ctx) },
		"CapturePhoto": func(m *Machine) { m.CapturePhoto(ctx) },
		"StopCamera":   func(m *Machine) { m.StopCamera(ctx) },
		"SelectFile":   func(m *Machine) { m.SelectFile(ctx, leafPNG) },
		"RemoveImage":  func(m *Machine) { m.RemoveImage(ctx) },
		"Submit":       func(m *Machine) { m.Submit(ctx) },
	}
	invalid := map[State][]string{
		Idle:          {"CapturePhoto", "StopCamera", "RemoveImage", "Submit"},
		CameraActive:  {"StartCamera", "RemoveImage", "Submit"},
		ImageSelected: {"CapturePhoto", "StopCamera"},
		Submitting:    {"StartCamera", "CapturePhoto", "StopCamera", "SelectFile", "RemoveImage", "Submit"},
		ResultReady:   {"CapturePhoto", "StopCamera", "Submit"},
	}

	for state, names := range invalid {
		for _, name := range names {
			t.Run(state.String()+"/"+name, func(t *testing.T) {
				f := newFixture(t)
				driveTo(t, f, state)
				before := f.m.Snapshot()
				opensBefore := f.cam.Opens()
				callsBefore := f.pred.Calls()

				ops[name](f.m)

				after := f.m.Snapshot()
				assert.Equal(t, before.State, after.State)
				assert.Equal(t, before.PreviewKey, after.PreviewKey)
				assert.Equal(t, before.Image, after.Image)
				assert.Equal(t, before.Result, after.Result)
				assert.Equal(t, before.CameraLive, after.CameraLive)
				assert.Equal(t, opensBefore, f.cam.Opens())
				assert.Equal(t, callsBefore, f.pred.Calls())
			})
		}
	}
}

func TestSelectFileThenRemoveImageReleasesPreviewOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.m.SelectFile(ctx, leafJPEG)
	snap := f.m.Snapshot()
	require.Equal(t, ImageSelected, snap.State)
	key := snap.PreviewKey
	require.NotEmpty(t, key)

	f.m.RemoveImage(ctx)
	f.m.RemoveImage(ctx)
	f.m.Close()

	snap = f.m.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Nil(t, snap.Image)
	assert.Empty(t, snap.PreviewKey)
	assert.Equal(t, 1, f.previews.Released(key))
	assert.Zero(t, f.previews.Live())
}

func TestSelectFileReplacesPreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.m.SelectFile(ctx, leafJPEG)
	first := f.m.Snapshot().PreviewKey
	f.m.SelectFile(ctx, leafPNG)
	snap := f.m.Snapshot()

	assert.NotEqual(t, first, snap.PreviewKey)
	assert.Equal(t, 1, f.previews.Released(first))
	assert.Equal(t, 1, f.previews.Live())
	assert.Equal(t, "image/png", snap.Image.MimeType)
}

func TestSelectEmptyFileIsIgnored(t *testing.T) {
	f := newFixture(t)

	f.m.SelectFile(context.Background(), domain.Image{MimeType: "image/jpeg"})

	assert.Equal(t, Idle, f.m.Snapshot().State)
	assert.Zero(t, f.previews.Live())
}

func TestSelectFileWhileCameraActiveStopsStream(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.m.StartCamera(ctx)
	require.Equal(t, CameraActive, f.m.Snapshot().State)
	stream := f.cam.Last()
	require.NotNil(t, stream)

	f.m.SelectFile(ctx, leafPNG)

	snap := f.m.Snapshot()
	assert.Equal(t, ImageSelected, snap.State)
	assert.False(t, snap.CameraLive)
	assert.False(t, stream.Live())
	assert.Equal(t, 1, stream.Stops())
}

func TestSubmitTwiceCallsPredictorOnce(t *testing.T) {
	f := newFixture(t)
	release := driveTo(t, f, Submitting)

	f.m.Submit(context.Background())
	f.m.Submit(context.Background())
	release()

	assert.Equal(t, 1, f.pred.Calls())
	assert.Equal(t, ResultReady, f.m.Snapshot().State)
}

func TestSubmitSuccess(t *testing.T) {
	var hooked *domain.DiagnosisResult
	f := newFixture(t, WithResultHook(func(_ context.Context, r *domain.DiagnosisResult) { hooked = r }))
	ctx := context.Background()

	f.m.SelectFile(ctx, leafJPEG)
	f.m.Submit(ctx)

	snap := f.m.Snapshot()
	assert.Equal(t, ResultReady, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "Leaf Blight", snap.Result.TopPredictions[0].Label)
	assert.Equal(t, domain.ThemeSevere, snap.Theme())
	assert.Equal(t, leafJPEG.Data, snap.Image.Data)
	require.NotNil(t, hooked)
	assert.Equal(t, "Leaf Blight", hooked.Primary().Label)
}

func TestSubmitFailureKeepsImage(t *testing.T) {
	for _, err := range []error{
		&backend.NetworkError{Op: "predict", Err: errors.New("connection refused")},
		&backend.ProtocolError{Op: "predict", Status: 500, Err: errors.New("bad body")},
	} {
		t.Run(err.Error(), func(t *testing.T) {
			f := newFixture(t)
			f.pred.err = err
			f.pred.result = nil
			ctx := context.Background()

			f.m.SelectFile(ctx, leafJPEG)
			key := f.m.Snapshot().PreviewKey
			f.m.Submit(ctx)

			snap := f.m.Snapshot()
			assert.Equal(t, ImageSelected, snap.State)
			assert.Equal(t, NoticePredictionFailed, snap.Notice)
			assert.Equal(t, leafJPEG.Data, snap.Image.Data)
			assert.Equal(t, key, snap.PreviewKey)
			assert.Nil(t, snap.Result)
			assert.True(t, snap.CanSubmit())

			// Retry succeeds once the backend recovers.
			f.pred.err = nil
			f.pred.result = blightResult()
			f.m.Submit(ctx)
			snap = f.m.Snapshot()
			assert.Equal(t, ResultReady, snap.State)
			assert.Equal(t, NoticeNone, snap.Notice)
		})
	}
}

func TestStartCameraDenied(t *testing.T) {
	f := newFixture(t)
	f.cam.err = &camera.DeviceError{Op: "open", Err: camera.ErrPermissionDenied}
	ctx := context.Background()

	f.m.SelectFile(ctx, leafJPEG)
	before := f.m.Snapshot()

	f.m.StartCamera(ctx)

	snap := f.m.Snapshot()
	assert.Equal(t, ImageSelected, snap.State)
	assert.Equal(t, before.PreviewKey, snap.PreviewKey)
	assert.Equal(t, NoticeCameraUnavailable, snap.Notice)
	assert.Equal(t, 1, f.cam.Opens())
}

func TestCapturePhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.m.StartCamera(ctx)
	stream := f.cam.Last()
	f.m.CapturePhoto(ctx)

	snap := f.m.Snapshot()
	assert.Equal(t, ImageSelected, snap.State)
	assert.Equal(t, "image/jpeg", snap.Image.MimeType)
	assert.NotEmpty(t, snap.PreviewKey)
	assert.False(t, snap.CameraLive)
	assert.Equal(t, 1, stream.Stops())

	decoded, err := jpeg.Decode(bytes.NewReader(snap.Image.Data))
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Bounds().Dx())
}

func TestCapturePhotoFrameErrorKeepsCamera(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.m.StartCamera(ctx)
	stream := f.cam.Last()
	stream.frameErr = &camera.DeviceError{Op: "frame", Err: camera.ErrNoFrame}

	f.m.CapturePhoto(ctx)

	snap := f.m.Snapshot()
	assert.Equal(t, CameraActive, snap.State)
	assert.Equal(t, NoticeCameraUnavailable, snap.Notice)
	assert.True(t, stream.Live())
}

func TestStopCamera(t *testing.T) {
	t.Run("without image returns to idle", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.m.StartCamera(ctx)
		stream := f.cam.Last()
		f.m.StopCamera(ctx)

		assert.Equal(t, Idle, f.m.Snapshot().State)
		assert.Equal(t, 1, stream.Stops())
	})

	t.Run("with image restores it", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.m.SelectFile(ctx, leafPNG)
		oldKey := f.m.Snapshot().PreviewKey
		f.m.StartCamera(ctx)

		active := f.m.Snapshot()
		assert.Equal(t, CameraActive, active.State)
		assert.Nil(t, active.Image)
		assert.Empty(t, active.PreviewKey)
		assert.Equal(t, 1, f.previews.Released(oldKey))

		f.m.StopCamera(ctx)

		snap := f.m.Snapshot()
		assert.Equal(t, ImageSelected, snap.State)
		assert.Equal(t, leafPNG.Data, snap.Image.Data)
		assert.NotEmpty(t, snap.PreviewKey)
		assert.NotEqual(t, oldKey, snap.PreviewKey)
	})
}

func TestStartCameraFromResultDiscardsResult(t *testing.T) {
	f := newFixture(t)
	driveTo(t, f, ResultReady)

	f.m.StartCamera(context.Background())

	snap := f.m.Snapshot()
	assert.Equal(t, CameraActive, snap.State)
	assert.Nil(t, snap.Result)

	f.m.StopCamera(context.Background())
	snap = f.m.Snapshot()
	assert.Equal(t, ImageSelected, snap.State)
	assert.Nil(t, snap.Result)
}

func TestLateCameraGrantIsDiscarded(t *testing.T) {
	f := newFixture(t)
	f.cam.gate = make(chan struct{})
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.m.StartCamera(ctx)
	}()

	// The user picks a file while the permission prompt is still open.
	require.Eventually(t, func() bool {
		f.m.mu.Lock()
		defer f.m.mu.Unlock()
		return f.m.opening
	}, time.Second, time.Millisecond)
	f.m.SelectFile(ctx, leafJPEG)
	close(f.cam.gate)
	<-done

	snap := f.m.Snapshot()
	assert.Equal(t, ImageSelected, snap.State)
	assert.False(t, snap.CameraLive)
	require.NotNil(t, f.cam.Last())
	assert.Equal(t, 1, f.cam.Last().Stops())
}

func TestCloseDuringSubmitDropsResponse(t *testing.T) {
	hooked := false
	f := newFixture(t, WithResultHook(func(context.Context, *domain.DiagnosisResult) { hooked = true }))
	release := driveTo(t, f, Submitting)
	key := f.m.Snapshot().PreviewKey

	f.m.Close()
	release()

	snap := f.m.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Nil(t, snap.Result)
	assert.False(t, hooked)
	assert.Equal(t, 1, f.previews.Released(key))
}

func TestCloseStopsCamera(t *testing.T) {
	f := newFixture(t)
	f.m.StartCamera(context.Background())
	stream := f.cam.Last()

	f.m.Close()
	f.m.Close()

	assert.Equal(t, 1, stream.Stops())
	assert.False(t, f.m.Snapshot().CameraLive)

	// A closed machine accepts nothing further.
	f.m.SelectFile(context.Background(), leafJPEG)
	assert.Equal(t, Idle, f.m.Snapshot().State)
	assert.Zero(t, f.previews.Live())
}
