// Package capture runs the webcam side of the pipeline on OpenCV: it reads
// frames, finds faces, labels them and hands alert frames to the dispatcher.
package capture

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// Haar cascade parameters.
const (
	cascadeScaleFactor  = 1.1
	cascadeMinNeighbors = 5
)

// FaceDetector finds frontal faces with a Haar cascade.
type FaceDetector struct {
	classifier gocv.CascadeClassifier
}

func NewFaceDetector(cascadePath string) (*FaceDetector, error) {
	if _, err := os.Stat(cascadePath); err != nil {
		return nil, fmt.Errorf("cascade file %s: %w", cascadePath, err)
	}
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade classifier from %s", cascadePath)
	}
	return &FaceDetector{classifier: classifier}, nil
}

// Detect returns face boxes in frame coordinates.
func (d *FaceDetector) Detect(frame gocv.Mat) []image.Rectangle {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	return d.classifier.DetectMultiScaleWithParams(gray, cascadeScaleFactor, cascadeMinNeighbors, 0, image.Point{}, image.Point{})
}

func (d *FaceDetector) Close() {
	d.classifier.Close()
}
