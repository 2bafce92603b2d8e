// Package detection holds the per-frame detection types shared by the capture
// loop and the alert rule, plus the frame-skip cache that bounds how often the
// detectors run.
package detection

import "image"

type Label string

const (
	LabelMale    Label = "Male"
	LabelFemale  Label = "Female"
	LabelUnknown Label = "Unknown"
)

// Detection is one classified face in resized-frame pixel coordinates.
type Detection struct {
	Box   image.Rectangle
	Label Label
}

// FrameCounts is the tally of classified detections in one frame.
type FrameCounts struct {
	Men   int
	Women int
}

// Tally counts Male and Female detections. Unknown labels are ignored.
func Tally(dets []Detection) FrameCounts {
	var c FrameCounts
	for _, d := range dets {
		switch d.Label {
		case LabelMale:
			c.Men++
		case LabelFemale:
			c.Women++
		}
	}
	return c
}

// FrameSkipper runs detection on every K-th frame and hands back the cached
// result in between, so a returned set is at most K-1 frames stale.
type FrameSkipper struct {
	every     int
	frame     int
	lastFrame int
	last      []Detection
}

// NewFrameSkipper returns a skipper detecting every K frames. K <= 1 detects
// on every frame.
func NewFrameSkipper(every int) *FrameSkipper {
	if every < 1 {
		every = 1
	}
	return &FrameSkipper{every: every}
}

// Next advances the frame counter. detect is only called on detection frames;
// fresh reports whether the returned set came from this frame.
func (s *FrameSkipper) Next(detect func() []Detection) (dets []Detection, fresh bool) {
	s.frame++
	if s.frame%s.every == 0 {
		s.last = detect()
		s.lastFrame = s.frame
		return s.last, true
	}
	return s.last, false
}

// Age is the number of frames since the cached set was produced. Before the
// first detection it equals the number of frames seen.
func (s *FrameSkipper) Age() int {
	return s.frame - s.lastFrame
}

// Every returns the configured detection interval.
func (s *FrameSkipper) Every() int {
	return s.every
}
