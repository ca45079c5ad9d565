package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-yolo/images"
)

func det(x1, y1, x2, y2, score float32, class int) Result {
	return Result{Box: images.Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}, Score: score, Class: class}
}

func TestApplyNMS(t *testing.T) {
	tests := []struct {
		name       string
		input      []Result
		classAware bool
		want       []Result
	}{
		{
			name:  "empty input",
			input: nil,
			want:  []Result{},
		},
		{
			name: "overlapping same class keeps highest",
			input: []Result{
				det(0, 0, 100, 100, 0.6, 0),
				det(2, 2, 102, 102, 0.9, 0),
			},
			classAware: true,
			want:       []Result{det(2, 2, 102, 102, 0.9, 0)},
		},
		{
			name: "disjoint boxes are all kept in score order",
			input: []Result{
				det(0, 0, 10, 10, 0.7, 0),
				det(100, 100, 110, 110, 0.8, 0),
				det(200, 200, 210, 210, 0.75, 1),
			},
			classAware: true,
			want: []Result{
				det(100, 100, 110, 110, 0.8, 0),
				det(200, 200, 210, 210, 0.75, 1),
				det(0, 0, 10, 10, 0.7, 0),
			},
		},
		{
			name: "class aware keeps overlapping boxes of different classes",
			input: []Result{
				det(0, 0, 100, 100, 0.9, 0),
				det(0, 0, 100, 100, 0.8, 1),
			},
			classAware: true,
			want: []Result{
				det(0, 0, 100, 100, 0.9, 0),
				det(0, 0, 100, 100, 0.8, 1),
			},
		},
		{
			name: "class agnostic suppresses across classes",
			input: []Result{
				det(0, 0, 100, 100, 0.9, 0),
				det(0, 0, 100, 100, 0.8, 1),
			},
			classAware: false,
			want:       []Result{det(0, 0, 100, 100, 0.9, 0)},
		},
		{
			name: "suppressed detection does not suppress others",
			input: []Result{
				det(0, 0, 100, 100, 0.9, 0),
				det(40, 0, 140, 100, 0.8, 0),
				det(80, 0, 180, 100, 0.7, 0),
			},
			classAware: true,
			want: []Result{
				det(0, 0, 100, 100, 0.9, 0),
				det(80, 0, 180, 100, 0.7, 0),
			},
		},
		{
			name: "equal scores keep first seen",
			input: []Result{
				det(0, 0, 100, 100, 0.5, 3),
				det(1, 1, 101, 101, 0.5, 3),
			},
			classAware: true,
			want:       []Result{det(0, 0, 100, 100, 0.5, 3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyNMS(tt.input, &NMSConfig{IoUThreshold: 0.25, ClassAware: tt.classAware})
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyNMS_Properties(t *testing.T) {
	input := []Result{
		det(10, 10, 60, 60, 0.55, 0),
		det(12, 12, 62, 62, 0.91, 0),
		det(300, 300, 340, 360, 0.66, 1),
		det(305, 298, 338, 362, 0.72, 1),
		det(500, 10, 540, 40, 0.8, 2),
		det(0, 0, 640, 640, 0.6, 2),
		det(15, 8, 58, 61, 0.91, 1),
	}
	original := append([]Result(nil), input...)

	for _, classAware := range []bool{true, false} {
		cfg := &NMSConfig{IoUThreshold: 0.25, ClassAware: classAware}
		once := ApplyNMS(input, cfg)

		assert.LessOrEqual(t, len(once), len(input))
		for _, r := range once {
			assert.Contains(t, input, r)
		}
		for i := 1; i < len(once); i++ {
			assert.GreaterOrEqual(t, once[i-1].Score, once[i].Score)
		}

		// NMS(NMS(D)) == NMS(D)
		assert.Equal(t, once, ApplyNMS(once, cfg))
	}

	assert.Equal(t, original, input, "input must not be reordered")
}

func TestTopK(t *testing.T) {
	input := []Result{
		det(0, 0, 1, 1, 0.6, 0),
		det(0, 0, 1, 1, 0.9, 1),
		det(0, 0, 1, 1, 0.7, 2),
		det(0, 0, 1, 1, 0.9, 3),
	}

	t.Run("caps and orders", func(t *testing.T) {
		got := TopK(input, 3)
		require.Len(t, got, 3)
		assert.Equal(t, []int{1, 3, 2}, []int{got[0].Class, got[1].Class, got[2].Class})
	})

	t.Run("no cap when k is negative", func(t *testing.T) {
		assert.Len(t, TopK(input, -1), 4)
	})

	t.Run("no cap when k is zero", func(t *testing.T) {
		got := TopK(input, 0)
		require.Len(t, got, 4)
		assert.Equal(t, []int{1, 3, 2, 0}, []int{got[0].Class, got[1].Class, got[2].Class, got[3].Class})
	})

	t.Run("k larger than input", func(t *testing.T) {
		assert.Len(t, TopK(input, 10), 4)
	})

	assert.Equal(t, float32(0.6), input[0].Score)
}
