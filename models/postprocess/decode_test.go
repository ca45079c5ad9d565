package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-yolo/errors"
	"github.com/nvr-ai/go-yolo/images"
)

// identity maps a 640x640 canvas onto a 640x640 source.
var identity = images.Transform{Ratio: 1, SrcWidth: 640, SrcHeight: 640}

func newDecoder(classes, points int) Decoder {
	return Decoder{
		NumClasses:          classes,
		NumPoints:           points,
		ConfidenceThreshold: 0.55,
		MaxCandidates:       3000,
		Layout:              DefaultLayout(),
	}
}

func TestDecode_OverlappingAnchorsThenNMS(t *testing.T) {
	d := newDecoder(1, 0)
	output := []float32{
		320, 320, 100, 100, 0.9,
		322, 322, 100, 100, 0.6,
	}

	candidates, err := d.Decode(output, identity)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	kept := ApplyNMS(candidates, &NMSConfig{IoUThreshold: 0.25, ClassAware: true})
	require.Len(t, kept, 1)
	assert.Equal(t, float32(0.9), kept[0].Score)
	assert.Equal(t, images.Rect{X1: 270, Y1: 270, X2: 370, Y2: 370}, kept[0].Box)
	assert.Nil(t, kept[0].KeyPoints)
}

func TestDecode_Threshold(t *testing.T) {
	d := newDecoder(2, 0)
	output := []float32{
		100, 100, 10, 10, 0.55, 0.10, // equal to threshold: excluded
		200, 200, 10, 10, 0.20, 0.56,
		300, 300, 10, 10, 0.00, 0.00,
		400, 400, 10, 10, 0.70, 0.70, // tie: first class wins
	}

	got, err := d.Decode(output, identity)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, float32(0.70), got[0].Score)
	assert.Equal(t, 0, got[0].Class)
	assert.Equal(t, float32(0.56), got[1].Score)
	assert.Equal(t, 1, got[1].Class)
	for _, r := range got {
		assert.Greater(t, r.Score, d.ConfidenceThreshold)
	}
}

func TestDecode_AllBelowThreshold(t *testing.T) {
	d := newDecoder(1, 0)
	got, err := d.Decode([]float32{10, 10, 5, 5, 0.1, 20, 20, 5, 5, 0.3}, identity)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDecode_BufferShape(t *testing.T) {
	tests := []struct {
		name    string
		classes int
		points  int
		length  int
		wantErr error
		wantLen int
	}{
		{"empty buffer", 1, 4, 0, nil, 0},
		{"one short of an anchor", 1, 0, 4, errors.ErrMalformedOutput, 0},
		{"one extra value", 2, 4, 14*3 + 1, errors.ErrMalformedOutput, 0},
		{"keypoint stride", 1, 4, 13 * 5, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDecoder(tt.classes, tt.points)
			got, err := d.Decode(make([]float32, tt.length), identity)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestDecode_KeyPointsAndInverseLetterbox(t *testing.T) {
	// 1280x720 source letterboxed into 640x640.
	tf := images.Transform{Ratio: 0.5, PadX: 0, PadY: 140, SrcWidth: 1280, SrcHeight: 720}
	d := newDecoder(1, 4)

	output := []float32{
		320, 320, 100, 100, 0.8,
		270, 270, 370, 270, 370, 370, 270, 370,
	}

	got, err := d.Decode(output, tf)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, images.Rect{X1: 540, Y1: 260, X2: 740, Y2: 460}, got[0].Box)
	assert.Equal(t, []images.Point{
		{X: 540, Y: 260}, {X: 740, Y: 260}, {X: 740, Y: 460}, {X: 540, Y: 460},
	}, got[0].KeyPoints)
}

func TestDecode_ClampsToSource(t *testing.T) {
	tf := images.Transform{Ratio: 0.5, PadX: 0, PadY: 140, SrcWidth: 1280, SrcHeight: 720}
	d := newDecoder(1, 1)

	// Box and keypoint reach into the top padding band.
	output := []float32{20, 150, 60, 40, 0.9, 10, 100}

	got, err := d.Decode(output, tf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 60}, got[0].Box)
	assert.Equal(t, []images.Point{{X: 20, Y: 0}}, got[0].KeyPoints)
}

func TestDecode_CornersAndInverted(t *testing.T) {
	d := newDecoder(1, 0)
	d.Layout.BoxEncoding = BoxCorners

	output := []float32{
		10, 20, 110, 220, 0.9,
		200, 200, 100, 300, 0.9, // x1 > x2: discarded
	}

	got, err := d.Decode(output, identity)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, images.Rect{X1: 10, Y1: 20, X2: 110, Y2: 220}, got[0].Box)
}

func TestDecode_KeyPointDims3(t *testing.T) {
	d := newDecoder(1, 2)
	d.Layout.KeyPointDims = 3

	output := []float32{100, 100, 20, 20, 0.9, 95, 96, 0.2, 105, 104, 0.99}
	got, err := d.Decode(output, identity)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []images.Point{{X: 95, Y: 96}, {X: 105, Y: 104}}, got[0].KeyPoints)
}

func TestDecode_ChannelMajorMatchesAnchorMajor(t *testing.T) {
	anchorMajor := []float32{
		320, 320, 100, 100, 0.9, 0.1, 300, 310,
		100, 120, 40, 60, 0.2, 0.8, 110, 115,
		500, 500, 20, 20, 0.1, 0.1, 0, 0,
	}
	stride, anchors := 8, 3

	channelMajor := make([]float32, len(anchorMajor))
	for a := 0; a < anchors; a++ {
		for c := 0; c < stride; c++ {
			channelMajor[c*anchors+a] = anchorMajor[a*stride+c]
		}
	}

	d := newDecoder(2, 1)
	want, err := d.Decode(anchorMajor, identity)
	require.NoError(t, err)
	require.Len(t, want, 2)

	d.Layout.Order = ChannelMajor
	got, err := d.Decode(channelMajor, identity)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// The caller's buffer is left as is.
	assert.Equal(t, float32(320), channelMajor[0])
	assert.Equal(t, float32(100), channelMajor[1])
}

func TestDecode_MaxCandidates(t *testing.T) {
	d := newDecoder(1, 0)
	d.MaxCandidates = 2

	output := []float32{
		10, 10, 5, 5, 0.6,
		20, 20, 5, 5, 0.9,
		30, 30, 5, 5, 0.7,
		40, 40, 5, 5, 0.9,
	}

	got, err := d.Decode(output, identity)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, float32(20), got[0].Box.X1+2.5)
	assert.Equal(t, float32(40), got[1].Box.X1+2.5)

	all, err := d.Candidates(output, identity)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDecode_MaxCandidatesDisabled(t *testing.T) {
	output := []float32{
		10, 10, 5, 5, 0.9,
		100, 100, 5, 5, 0.8,
	}

	for _, limit := range []int{0, -1} {
		d := newDecoder(1, 0)
		d.MaxCandidates = limit

		got, err := d.Decode(output, identity)
		require.NoError(t, err)
		require.Len(t, got, 2, "max candidates %d", limit)
		assert.Equal(t, float32(0.9), got[0].Score)
		assert.Equal(t, float32(0.8), got[1].Score)
	}
}

func TestDecoder_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Decoder)
	}{
		{"no classes", func(d *Decoder) { d.NumClasses = 0 }},
		{"negative points", func(d *Decoder) { d.NumPoints = -1 }},
		{"threshold above one", func(d *Decoder) { d.ConfidenceThreshold = 1.5 }},
		{"bad encoding", func(d *Decoder) { d.Layout.BoxEncoding = "xyxy" }},
		{"bad order", func(d *Decoder) { d.Layout.Order = "nhwc" }},
		{"bad keypoint dims", func(d *Decoder) { d.Layout.KeyPointDims = 4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDecoder(1, 0)
			tt.mutate(&d)
			_, err := d.Decode(nil, identity)
			assert.True(t, errors.Is(err, errors.ErrInvalidInput))
		})
	}
}
