package capture

import (
	"errors"
	"fmt"
	"image"
	"os"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/maanas1234/Celestia-Hackathon/detection"
)

// Classifier input: 224x224 RGB normalized with the ImageNet mean and std.
// blobFromImage takes a single scale, so the std is applied per plane after.
const (
	genderInputSize = 224
	genderScale     = 1.0 / 255.0
)

var genderMean = gocv.NewScalar(123.675, 116.28, 103.53, 0)

var errClassifierDisabled = errors.New("gender classifier not loaded")

// GenderClassifier labels a face crop with an ONNX binary classifier whose
// output index 0 is Female and index 1 is Male.
type GenderClassifier struct {
	Net     gocv.Net
	Enabled bool
	log     *zap.SugaredLogger
}

// NewGenderClassifier loads the model. A missing or unreadable model yields a
// disabled classifier that labels every face Unknown.
func NewGenderClassifier(modelPath string, log *zap.SugaredLogger) *GenderClassifier {
	if modelPath == "" {
		log.Warnf("capture.gender: model path is empty, every face will be labelled %s", detection.LabelUnknown)
		return &GenderClassifier{log: log}
	}
	if _, err := os.Stat(modelPath); err != nil {
		log.Errorf("capture.gender: ERROR - model file %s: %v", modelPath, err)
		return &GenderClassifier{log: log}
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		log.Errorf("capture.gender: ERROR - ReadNet returned an empty network for %s", modelPath)
		return &GenderClassifier{log: log}
	}

	cudaBackendErr := net.SetPreferableBackend(gocv.NetBackendCUDA)
	cudaTargetErr := net.SetPreferableTarget(gocv.NetTargetCUDA)
	if cudaBackendErr == nil && cudaTargetErr == nil {
		log.Infof("capture.gender: Set backend/target to CUDA")
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
		log.Infof("capture.gender: Set backend/target to CPU (Default)")
	}

	log.Infof("capture.gender: successfully loaded %s", modelPath)
	return &GenderClassifier{Net: net, Enabled: true, log: log}
}

// Classify returns the label for one face crop. Any failure is reported
// together with LabelUnknown so callers can keep going.
func (g *GenderClassifier) Classify(face gocv.Mat) (label detection.Label, err error) {
	if g == nil || !g.Enabled {
		return detection.LabelUnknown, errClassifierDisabled
	}
	if face.Empty() {
		return detection.LabelUnknown, fmt.Errorf("empty face crop")
	}
	defer func() {
		if r := recover(); r != nil {
			label, err = detection.LabelUnknown, fmt.Errorf("classifier panicked: %v", r)
		}
	}()

	blob := gocv.BlobFromImage(face, genderScale, image.Pt(genderInputSize, genderInputSize), genderMean, true, false)
	defer blob.Close()

	planes, err := blob.DataPtrFloat32()
	if err != nil {
		return detection.LabelUnknown, fmt.Errorf("classifier blob: %w", err)
	}
	if err := detection.DivideChannels(planes, detection.ImageNetStd[:]); err != nil {
		return detection.LabelUnknown, err
	}

	g.Net.SetInput(blob, "")
	output := g.Net.Forward("")
	defer output.Close()

	scores := output.Reshape(1, 1)
	defer scores.Close()
	if scores.Cols() < 2 {
		return detection.LabelUnknown, fmt.Errorf("unexpected classifier output shape %v", output.Size())
	}

	if scores.GetFloatAt(0, 0) >= scores.GetFloatAt(0, 1) {
		return detection.LabelFemale, nil
	}
	return detection.LabelMale, nil
}

func (g *GenderClassifier) Close() {
	if g != nil && g.Enabled {
		g.Net.Close()
		g.log.Infof("capture.gender: closed network")
		g.Enabled = false
	}
}
