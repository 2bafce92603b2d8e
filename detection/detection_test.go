package detection

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTally(t *testing.T) {
	dets := []Detection{
		{Box: image.Rect(0, 0, 10, 10), Label: LabelMale},
		{Box: image.Rect(10, 0, 20, 10), Label: LabelFemale},
		{Box: image.Rect(20, 0, 30, 10), Label: LabelUnknown},
		{Box: image.Rect(30, 0, 40, 10), Label: LabelMale},
	}

	assert.Equal(t, FrameCounts{Men: 2, Women: 1}, Tally(dets))
	assert.Equal(t, FrameCounts{}, Tally(nil))
}

func TestFrameSkipper_DetectsEveryKthFrame(t *testing.T) {
	s := NewFrameSkipper(3)
	calls := 0
	detect := func() []Detection {
		calls++
		return []Detection{{Label: LabelFemale}}
	}

	var fresh []bool
	for i := 0; i < 9; i++ {
		_, f := s.Next(detect)
		fresh = append(fresh, f)
	}

	assert.Equal(t, 3, calls)
	assert.Equal(t, []bool{false, false, true, false, false, true, false, false, true}, fresh)
}

func TestFrameSkipper_ReusesCachedSetWithinStalenessBound(t *testing.T) {
	const k = 4
	s := NewFrameSkipper(k)
	generation := 0
	detect := func() []Detection {
		generation++
		return []Detection{{Box: image.Rect(generation, 0, generation+1, 1), Label: LabelMale}}
	}

	// nothing cached before the first detection frame
	for i := 1; i < k; i++ {
		dets, fresh := s.Next(detect)
		assert.False(t, fresh)
		assert.Empty(t, dets)
	}

	for frame := k; frame < 5*k; frame++ {
		dets, fresh := s.Next(detect)
		assert.Len(t, dets, 1)
		assert.Equal(t, generation, dets[0].Box.Min.X)
		assert.Equal(t, frame%k == 0, fresh)
		assert.LessOrEqual(t, s.Age(), k-1)
	}
}

func TestFrameSkipper_NonPositiveIntervalDetectsEveryFrame(t *testing.T) {
	for _, k := range []int{-2, 0, 1} {
		s := NewFrameSkipper(k)
		assert.Equal(t, 1, s.Every())
		for i := 0; i < 3; i++ {
			_, fresh := s.Next(func() []Detection { return nil })
			assert.True(t, fresh)
			assert.Equal(t, 0, s.Age())
		}
	}
}

func TestDivideChannels(t *testing.T) {
	blob := []float32{
		0.229, -0.458, // R
		0.224, 0.448, // G
		0.225, 0, // B
	}
	require.NoError(t, DivideChannels(blob, ImageNetStd[:]))
	assert.InDeltaSlice(t, []float32{1, -2, 1, 2, 1, 0}, blob, 1e-5)

	assert.Error(t, DivideChannels(make([]float32, 5), ImageNetStd[:]))
	assert.Error(t, DivideChannels(make([]float32, 3), []float32{1, 0, 1}))
	assert.Error(t, DivideChannels(make([]float32, 3), nil))
}
