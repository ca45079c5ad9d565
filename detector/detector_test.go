package detector

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-yolo/errors"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// fakeAdapter returns a canned output buffer.
type fakeAdapter struct {
	output     []float32
	prepareErr error
	extractErr error
	order      postprocess.Order

	prepared image.Image
	runs     int
	closed   bool
}

func (f *fakeAdapter) PrepareInput(canvas image.Image) error {
	f.prepared = canvas
	return f.prepareErr
}

func (f *fakeAdapter) ExtractOutput() ([]float32, error) {
	f.runs++
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return append([]float32(nil), f.output...), nil
}

func (f *fakeAdapter) Close() error {
	f.closed = true
	return nil
}

// orderedAdapter also reports its output order.
type orderedAdapter struct {
	*fakeAdapter
}

func (o orderedAdapter) OutputOrder() postprocess.Order { return o.order }

func frame(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func newDetector(t *testing.T, adapter *fakeAdapter, cfg model.Config) *Detector {
	t.Helper()
	d := New()
	require.NoError(t, d.InitializeWithAdapter(adapter, cfg))
	return d
}

func TestRun_NotInitialized(t *testing.T) {
	tests := []struct {
		name     string
		detector *Detector
	}{
		{"new", New()},
		{"zero value", &Detector{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.detector.Run(context.Background(), frame(10, 10))
			assert.True(t, errors.Is(err, errors.ErrNotInitialized))
		})
	}
}

func TestRun_OverlappingDetections(t *testing.T) {
	adapter := &fakeAdapter{output: []float32{
		320, 320, 100, 100, 0.9,
		322, 322, 100, 100, 0.6,
		100, 100, 10, 10, 0.3,
	}}
	d := newDetector(t, adapter, model.DefaultConfig("fake.onnx", 1, 0))

	results, stats, err := d.RunWithStats(context.Background(), frame(640, 640))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, float32(0.9), results[0].Score)
	assert.Equal(t, images.Rect{X1: 270, Y1: 270, X2: 370, Y2: 370}, results[0].Box)

	assert.Equal(t, 3, stats.Anchors)
	assert.Equal(t, 2, stats.Candidates)
	assert.Equal(t, 1, stats.Detections)
	assert.Equal(t, image.Rect(0, 0, 640, 640), adapter.prepared.Bounds())
}

func TestRun_AllBelowThreshold(t *testing.T) {
	adapter := &fakeAdapter{output: []float32{
		320, 320, 100, 100, 0.1, 1, 1, 2, 2,
		100, 100, 50, 50, 0.55, 3, 3, 4, 4,
	}}
	d := newDetector(t, adapter, model.DefaultConfig("fake.onnx", 1, 2))

	results, err := d.Run(context.Background(), frame(1280, 720))
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRun_MapsToSourceImage(t *testing.T) {
	// Canvas coordinates for a 1280x720 frame: ratio 0.5, pad (0, 140).
	adapter := &fakeAdapter{output: []float32{
		320, 320, 100, 100, 0.95,
		270, 270, 370, 270, 370, 370, 270, 370,
	}}
	d := newDetector(t, adapter, model.DefaultConfig("fake.onnx", 1, 4))

	results, err := d.Run(context.Background(), frame(1280, 720))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, images.Rect{X1: 540, Y1: 260, X2: 740, Y2: 460}, results[0].Box)
	assert.Equal(t, []images.Point{{X: 540, Y: 260}, {X: 740, Y: 260}, {X: 740, Y: 460}, {X: 540, Y: 460}}, results[0].KeyPoints)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		adapter *fakeAdapter
		img     image.Image
		wantErr error
	}{
		{"nil image", &fakeAdapter{}, nil, errors.ErrInvalidInput},
		{"empty image", &fakeAdapter{}, image.NewNRGBA(image.Rect(0, 0, 0, 0)), errors.ErrInvalidInput},
		{"prepare fails", &fakeAdapter{prepareErr: errors.New("boom")}, frame(8, 8), errors.ErrInferenceFailure},
		{"extract fails", &fakeAdapter{extractErr: errors.New("boom")}, frame(8, 8), errors.ErrInferenceFailure},
		{"malformed output", &fakeAdapter{output: make([]float32, 7)}, frame(8, 8), errors.ErrMalformedOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDetector(t, tt.adapter, model.DefaultConfig("fake.onnx", 1, 0))
			results, err := d.Run(context.Background(), tt.img)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Empty(t, results)
		})
	}
}

func TestRun_CancelledContext(t *testing.T) {
	adapter := &fakeAdapter{}
	d := newDetector(t, adapter, model.DefaultConfig("fake.onnx", 1, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Run(ctx, frame(8, 8))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, adapter.runs)
}

func TestInitializeWithAdapter(t *testing.T) {
	t.Run("nil adapter", func(t *testing.T) {
		err := New().InitializeWithAdapter(nil, model.DefaultConfig("fake.onnx", 1, 0))
		assert.True(t, errors.Is(err, errors.ErrLoadFailure))
	})

	t.Run("invalid config", func(t *testing.T) {
		err := New().InitializeWithAdapter(&fakeAdapter{}, model.DefaultConfig("fake.onnx", 0, 0))
		assert.True(t, errors.Is(err, errors.ErrLoadFailure))
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	})

	t.Run("adapter order overrides layout", func(t *testing.T) {
		adapter := orderedAdapter{&fakeAdapter{order: postprocess.ChannelMajor}}
		d := New()
		require.NoError(t, d.InitializeWithAdapter(adapter, model.DefaultConfig("fake.onnx", 1, 0)))

		cfg, ok := d.Config()
		require.True(t, ok)
		assert.Equal(t, postprocess.ChannelMajor, cfg.Layout.Order)
	})

	t.Run("reinitialize closes previous adapter", func(t *testing.T) {
		first := &fakeAdapter{}
		d := newDetector(t, first, model.DefaultConfig("fake.onnx", 1, 0))
		require.NoError(t, d.InitializeWithAdapter(&fakeAdapter{}, model.DefaultConfig("fake.onnx", 1, 0)))
		assert.True(t, first.closed)
	})
}

func TestInitialize_MissingModel(t *testing.T) {
	err := New().Initialize("does-not-exist.onnx", 1, 4)
	assert.True(t, errors.Is(err, errors.ErrLoadFailure))
}

func TestClose(t *testing.T) {
	adapter := &fakeAdapter{}
	d := newDetector(t, adapter, model.DefaultConfig("fake.onnx", 1, 0))

	require.NoError(t, d.Close())
	assert.True(t, adapter.closed)

	_, err := d.Run(context.Background(), frame(8, 8))
	assert.True(t, errors.Is(err, errors.ErrNotInitialized))

	_, ok := d.Config()
	assert.False(t, ok)
}

func TestStats_FramesPerSecond(t *testing.T) {
	assert.Zero(t, (*Stats)(nil).FramesPerSecond())
	assert.InDelta(t, 50.0, (&Stats{Total: 20_000_000}).FramesPerSecond(), 1e-9)
}
