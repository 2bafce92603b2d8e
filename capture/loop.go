package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/maanas1234/Celestia-Hackathon/alertclient"
	"github.com/maanas1234/Celestia-Hackathon/config"
	"github.com/maanas1234/Celestia-Hackathon/detection"
	"github.com/maanas1234/Celestia-Hackathon/metrics"
)

// Loop owns the camera and, unless headless, the preview window.
type Loop struct {
	Cfg        config.ClientConfig
	Faces      *FaceDetector
	Classifier *GenderClassifier
	Dispatcher *alertclient.Dispatcher
	Metrics    *metrics.Client
	Log        *zap.SugaredLogger
}

// Run captures frames until the camera stops delivering, the quit key is
// pressed or ctx is cancelled. Failing to open the camera is an error.
func (l *Loop) Run(ctx context.Context) error {
	webcam, err := gocv.OpenVideoCapture(l.Cfg.CameraDevice)
	if err != nil {
		return fmt.Errorf("cannot open camera %s: %w", l.Cfg.CameraDevice, err)
	}
	defer webcam.Close()
	if !webcam.IsOpened() {
		return fmt.Errorf("cannot open camera %s", l.Cfg.CameraDevice)
	}

	var window *gocv.Window
	if !l.Cfg.Headless {
		window = gocv.NewWindow(l.Cfg.WindowName)
		defer window.Close()
	}

	frame := gocv.NewMat()
	defer frame.Close()
	small := gocv.NewMat()
	defer small.Close()

	skipper := detection.NewFrameSkipper(l.Cfg.FrameSkip)
	quitKey := int(l.Cfg.QuitKey[0])

	l.Log.Infof("capture: Women safety monitoring running (camera %s, frame skip %d). Press '%s' to exit.",
		l.Cfg.CameraDevice, skipper.Every(), l.Cfg.QuitKey)

	for {
		select {
		case <-ctx.Done():
			l.Log.Infof("capture: stopping: %v", ctx.Err())
			return nil
		default:
		}

		if ok := webcam.Read(&frame); !ok || frame.Empty() {
			l.Log.Warnf("capture: camera %s stopped delivering frames", l.Cfg.CameraDevice)
			return nil
		}
		l.Metrics.FramesRead.Add(1)

		resizeToWidth(frame, &small, l.Cfg.MaxWidth)

		dets, fresh := skipper.Next(func() []detection.Detection { return l.detect(small) })
		if fresh {
			l.Metrics.FramesDetected.Add(1)
			l.Metrics.FacesDetected.Add(uint64(len(dets)))
		}
		counts := detection.Tally(dets)

		if err := drawDetections(&small, dets); err != nil {
			l.Log.Warnf("capture: %v", err)
		}

		now := time.Now()
		if text, ok := l.Dispatcher.Decide(counts, now); ok {
			if err := drawAlert(&small, text); err != nil {
				l.Log.Warnf("capture: %v", err)
			}
			l.Dispatcher.Dispatch(text, counts, now, func() ([]byte, error) { return encodeJPEG(small) })
		}

		if window != nil {
			window.IMShow(small)
			if key := window.WaitKey(1); key >= 0 && key&0xFF == quitKey {
				l.Log.Infof("capture: quit key pressed")
				return nil
			}
		}
	}
}

// detect finds faces in frame and labels each one. A classifier failure
// labels that face Unknown.
func (l *Loop) detect(frame gocv.Mat) []detection.Detection {
	start := time.Now()
	defer func() { l.Metrics.UpdateDetectLatency(time.Since(start)) }()

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	boxes := l.Faces.Detect(frame)
	dets := make([]detection.Detection, 0, len(boxes))
	for _, box := range boxes {
		box = box.Intersect(bounds)
		if box.Empty() {
			continue
		}
		face := frame.Region(box)
		label, err := l.Classifier.Classify(face)
		face.Close()
		if err != nil && !errors.Is(err, errClassifierDisabled) {
			l.Log.Warnf("capture: gender prediction failed: %v", err)
		}
		dets = append(dets, detection.Detection{Box: box, Label: label})
	}
	return dets
}
