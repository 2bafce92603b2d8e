package capture

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/maanas1234/Celestia-Hackathon/detection"
)

var (
	colorMale    = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	colorFemale  = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	colorUnknown = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	colorAlert   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

func labelColor(label detection.Label) color.RGBA {
	switch label {
	case detection.LabelMale:
		return colorMale
	case detection.LabelFemale:
		return colorFemale
	default:
		return colorUnknown
	}
}

// drawDetections outlines each face and writes its label above the box.
func drawDetections(frame *gocv.Mat, dets []detection.Detection) error {
	for _, d := range dets {
		c := labelColor(d.Label)
		if err := gocv.Rectangle(frame, d.Box, c, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %w", err)
		}
		pt := image.Pt(d.Box.Min.X, d.Box.Min.Y-10)
		if err := gocv.PutText(frame, string(d.Label), pt, gocv.FontHersheySimplex, 0.6, c, 2); err != nil {
			return fmt.Errorf("failed to draw text: %w", err)
		}
	}
	return nil
}

// drawAlert writes the alert text in the top-left corner.
func drawAlert(frame *gocv.Mat, text string) error {
	if err := gocv.PutText(frame, text, image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, colorAlert, 2); err != nil {
		return fmt.Errorf("failed to draw alert text: %w", err)
	}
	return nil
}

func encodeJPEG(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()
	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// resizeToWidth scales src to maxWidth keeping the aspect ratio. Frames
// narrower than maxWidth are upscaled too, matching the display size.
func resizeToWidth(src gocv.Mat, dst *gocv.Mat, maxWidth int) {
	w, h := src.Cols(), src.Rows()
	if maxWidth <= 0 || w == 0 {
		src.CopyTo(dst)
		return
	}
	scale := float64(maxWidth) / float64(w)
	gocv.Resize(src, dst, image.Pt(maxWidth, int(float64(h)*scale)), 0, 0, gocv.InterpolationLinear)
}
