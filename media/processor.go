package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	AlertJpegQuality   = 85
	AlertFileExtension = ".jpg"
)

// Processor normalizes uploaded alert frames and hands them to a Store.
type Processor struct {
	store    Store
	maxWidth int
	log      *zap.SugaredLogger
}

func NewProcessor(store Store, maxWidth int, log *zap.SugaredLogger) *Processor {
	return &Processor{store: store, maxWidth: maxWidth, log: log}
}

// Store returns the store images are saved to.
func (p *Processor) Store() Store { return p.store }

// PrepareAlertImage returns JPEG bytes no wider than the configured maximum.
// JPEGs already within bounds are passed through untouched. An error means the
// bytes could not be decoded; the original data is returned alongside it.
func (p *Processor) PrepareAlertImage(data []byte) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return data, fmt.Errorf("failed to decode alert image header: %w", err)
	}
	if format == "jpeg" && (p.maxWidth <= 0 || cfg.Width <= p.maxWidth) {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data, fmt.Errorf("failed to decode alert image (format: %s): %w", format, err)
	}
	if p.maxWidth > 0 && img.Bounds().Dx() > p.maxWidth {
		img = imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(AlertJpegQuality)); err != nil {
		return data, fmt.Errorf("alert image encoding failed: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveAlertImage prepares and stores an alert frame captured at ts.
func (p *Processor) SaveAlertImage(ctx context.Context, data []byte, ts time.Time) (SavedImage, error) {
	if len(data) == 0 {
		return SavedImage{}, fmt.Errorf("alert image is empty")
	}

	prepared, err := p.PrepareAlertImage(data)
	if err != nil {
		p.log.Warnf("processor: storing alert image as received: %v", err)
	}

	filename := AlertFilename(ts)
	saved, err := p.store.Save(ctx, filename, bytes.NewReader(prepared), int64(len(prepared)))
	if err != nil {
		return SavedImage{}, fmt.Errorf("failed to save alert image via %s store: %w", p.store.Name(), err)
	}

	p.log.Infof("processor: Saved alert image %s (%d bytes)", saved.Key, len(prepared))
	return saved, nil
}

// AlertFilename builds alert_<YYYYmmdd_HHMMSS>_<8 hex>.jpg. The random suffix
// keeps alerts raised within the same second apart.
func AlertFilename(ts time.Time) string {
	return fmt.Sprintf("alert_%s_%s%s", ts.UTC().Format("20060102_150405"), uuid.NewString()[:8], AlertFileExtension)
}
