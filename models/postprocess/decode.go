package postprocess

import (
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-yolo/errors"
	"github.com/nvr-ai/go-yolo/images"
)

// BoxEncoding is how the four box values of an anchor are encoded.
type BoxEncoding string

const (
	// BoxCenterSize encodes a box as cx, cy, w, h.
	BoxCenterSize BoxEncoding = "center_size"
	// BoxCorners encodes a box as x1, y1, x2, y2.
	BoxCorners BoxEncoding = "corners"
)

// Order is how anchors and values are arranged in the flat output buffer.
type Order string

const (
	// AnchorMajor stores every value of anchor 0, then every value of anchor 1, and so on ([N, C]).
	AnchorMajor Order = "anchor_major"
	// ChannelMajor stores value 0 of every anchor, then value 1 of every anchor, and so on ([C, N]).
	ChannelMajor Order = "channel_major"
)

// Layout describes the arrangement of a raw YOLO output buffer. Within an
// anchor the values are always 4 box values, one score per class, then the
// keypoint values.
type Layout struct {
	BoxEncoding BoxEncoding `json:"box_encoding" yaml:"box_encoding"`
	Order       Order       `json:"order"        yaml:"order"`
	// KeyPointDims is 2 for (x, y) or 3 for (x, y, visibility). Visibility is ignored.
	KeyPointDims int `json:"keypoint_dims" yaml:"keypoint_dims"`
}

// DefaultLayout returns center-size boxes, anchor-major order and 2D keypoints.
func DefaultLayout() Layout {
	return Layout{
		BoxEncoding:  BoxCenterSize,
		Order:        AnchorMajor,
		KeyPointDims: 2,
	}
}

// Validate checks that every field of the layout has a supported value.
func (l Layout) Validate() error {
	switch l.BoxEncoding {
	case BoxCenterSize, BoxCorners:
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "unsupported box encoding %q", l.BoxEncoding)
	}
	switch l.Order {
	case AnchorMajor, ChannelMajor:
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "unsupported output order %q", l.Order)
	}
	if l.KeyPointDims != 2 && l.KeyPointDims != 3 {
		return errors.Wrapf(errors.ErrInvalidInput, "keypoint dims must be 2 or 3, got %d", l.KeyPointDims)
	}
	return nil
}

// Decoder turns a raw output buffer into candidate detections.
type Decoder struct {
	// NumClasses is the number of class scores per anchor.
	NumClasses int
	// NumPoints is the number of keypoints per anchor.
	NumPoints int
	// ConfidenceThreshold is the exclusive lower bound on the class score.
	ConfidenceThreshold float32
	// MaxCandidates caps the number of candidates returned by Decode. Zero or
	// negative disables the cap.
	MaxCandidates int
	// Layout is the arrangement of the output buffer.
	Layout Layout
}

// Stride returns the number of values per anchor.
func (d Decoder) Stride() int {
	return 4 + d.NumClasses + d.NumPoints*d.Layout.KeyPointDims
}

// Validate checks the decoder configuration.
func (d Decoder) Validate() error {
	if d.NumClasses < 1 {
		return errors.Wrapf(errors.ErrInvalidInput, "num classes must be positive, got %d", d.NumClasses)
	}
	if d.NumPoints < 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "num points must not be negative, got %d", d.NumPoints)
	}
	if d.ConfidenceThreshold < 0 || d.ConfidenceThreshold > 1 {
		return errors.Wrapf(errors.ErrInvalidInput,
			"confidence threshold must be in [0, 1], got %v", d.ConfidenceThreshold)
	}
	return d.Layout.Validate()
}

// Decode returns the candidates of output whose score exceeds the confidence
// threshold, mapped to source image coordinates through tf and capped at
// MaxCandidates (highest scores first, ties in anchor order).
//
// Arguments:
//   - output: The flat output buffer. It is not modified.
//   - tf: The letterbox transform of the image the output was produced from.
//
// Returns:
//   - []Result: The candidates in descending score order. Never nil.
//   - error: ErrMalformedOutput if the buffer length is not a multiple of the stride.
func (d Decoder) Decode(output []float32, tf images.Transform) ([]Result, error) {
	candidates, err := d.Candidates(output, tf)
	if err != nil {
		return nil, err
	}
	return TopK(candidates, d.MaxCandidates), nil
}

// Candidates is Decode without the candidate cap. Results are in anchor order.
func (d Decoder) Candidates(output []float32, tf images.Transform) ([]Result, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if tf.Ratio <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "letterbox ratio must be positive, got %v", tf.Ratio)
	}

	stride := d.Stride()
	if len(output)%stride != 0 {
		return nil, errors.Wrapf(errors.ErrMalformedOutput,
			"output length %d is not a multiple of stride %d", len(output), stride)
	}
	anchors := len(output) / stride
	if anchors == 0 {
		return []Result{}, nil
	}

	rows := output
	if d.Layout.Order == ChannelMajor {
		var err error
		if rows, err = transpose(output, stride, anchors); err != nil {
			return nil, err
		}
	}

	results := make([]Result, 0)
	for i := 0; i < anchors; i++ {
		row := rows[i*stride : (i+1)*stride]

		class, score := argmax(row[4 : 4+d.NumClasses])
		if !(score > d.ConfidenceThreshold) {
			continue
		}

		box := d.box(row[:4])
		tl := tf.ToOriginal(images.Point{X: box.X1, Y: box.Y1})
		br := tf.ToOriginal(images.Point{X: box.X2, Y: box.Y2})
		box = images.Rect{X1: tl.X, Y1: tl.Y, X2: br.X, Y2: br.Y}
		if !box.Valid() {
			continue
		}

		results = append(results, Result{
			Box:       box.Clamp(tf.SrcWidth, tf.SrcHeight),
			Score:     score,
			Class:     class,
			KeyPoints: d.keyPoints(row[4+d.NumClasses:], tf),
		})
	}

	return results, nil
}

func (d Decoder) box(v []float32) images.Rect {
	if d.Layout.BoxEncoding == BoxCorners {
		return images.Rect{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}
	}
	return images.FromCenter(v[0], v[1], v[2], v[3])
}

func (d Decoder) keyPoints(v []float32, tf images.Transform) []images.Point {
	if d.NumPoints == 0 {
		return nil
	}
	dims := d.Layout.KeyPointDims
	points := make([]images.Point, d.NumPoints)
	for j := range points {
		p := images.Point{X: v[j*dims], Y: v[j*dims+1]}
		points[j] = tf.ClampToSource(tf.ToOriginal(p))
	}
	return points
}

// argmax returns the index and value of the largest score. The first maximum
// wins ties.
func argmax(scores []float32) (int, float32) {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best, scores[best]
}

// transpose converts a channel-major [stride, anchors] buffer to anchor-major
// [anchors, stride]. The input is copied.
func transpose(output []float32, stride, anchors int) ([]float32, error) {
	backing := make([]float32, len(output))
	copy(backing, output)
	if anchors == 1 {
		return backing, nil
	}

	t := tensor.New(tensor.WithShape(stride, anchors), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		return nil, errors.Wrap(err, "transpose output")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "transpose output")
	}
	data, ok := t.Data().([]float32)
	if !ok || len(data) != len(output) {
		return nil, errors.Wrap(errors.ErrMalformedOutput, "transposed output has unexpected backing")
	}
	return data, nil
}
