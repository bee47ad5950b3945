package extractor

import (
	"context"

	"go.uber.org/zap"

	"github.com/digimosa/content-moderation/internal/allowlist"
	"github.com/digimosa/content-moderation/internal/extractor/detectors"
	"github.com/digimosa/content-moderation/internal/imgcodec"
	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/ocr"
)

// PIIDetector scans typed text and OCR output for personal information.
// It holds no mutable state and is safe for concurrent use.
type PIIDetector struct {
	log        *zap.Logger
	recognizer ocr.Recognizer
	allow      *allowlist.Allowlist

	text  []detectors.Detector
	image []detectors.Detector
}

// NewPIIDetector wires the pattern families. recognizer may be nil, in which
// case image detection always yields nothing.
func NewPIIDetector(log *zap.Logger, recognizer ocr.Recognizer, allow *allowlist.Allowlist) *PIIDetector {
	if recognizer == nil {
		recognizer = ocr.Disabled{}
	}
	return &PIIDetector{
		log:        log,
		recognizer: recognizer,
		allow:      allow,
		text: []detectors.Detector{
			detectors.NewPhoneDetector(),
			detectors.NewEmailDetector(),
			detectors.NewSocialMediaDetector(),
			detectors.NewNameDetector(),
			detectors.NewAddressDetector(),
			detectors.NewCreditCardDetector(),
			detectors.NewSSNDetector(),
		},
		// names, addresses, cards and SSNs are not yet checked in images
		image: []detectors.Detector{
			detectors.NewPhoneDetector(),
			detectors.NewEmailDetector(),
			detectors.NewSocialMediaDetector(),
		},
	}
}

// DetectInText runs every family over text. Overlaps between families are
// all kept.
func (d *PIIDetector) DetectInText(text string) []models.PIIDetection {
	var found []models.PIIDetection
	for _, det := range d.text {
		for _, m := range det.Detect(text) {
			if d.allow.Contains(m.Value) {
				continue
			}
			found = append(found, models.PIIDetection{
				Type:       m.Type,
				Confidence: det.Confidence(),
				Text:       m.Value,
			})
		}
	}
	return found
}

// DetectInImage recognizes text in the image and reports contact details with
// their pixel boxes. Any OCR failure yields an empty list.
func (d *PIIDetector) DetectInImage(ctx context.Context, image []byte) []models.PIIDetection {
	info, err := imgcodec.Inspect(image)
	if err != nil {
		d.log.Debug("skipping PII scan of unreadable image", zap.Error(err))
		return nil
	}
	obs, err := d.recognizer.RecognizeText(ctx, image)
	if err != nil {
		d.log.Warn("OCR failed, image PII scan degraded", zap.Error(err))
		return nil
	}
	return d.DetectInObservations(obs, info.Width, info.Height)
}

// DetectInObservations checks already recognized fragments. Each hit is
// located at its fragment's box and scored with the OCR confidence.
func (d *PIIDetector) DetectInObservations(obs []ocr.Observation, width, height int) []models.PIIDetection {
	var found []models.PIIDetection
	for _, o := range obs {
		if o.Text == "" {
			continue
		}
		box := o.PixelBox(width, height)
		for _, det := range d.image {
			for _, m := range det.Detect(o.Text) {
				if d.allow.Contains(m.Value) {
					continue
				}
				found = append(found, models.PIIDetection{
					Type:       m.Type,
					Location:   box,
					Confidence: models.Clamp01(o.Confidence),
					Text:       m.Value,
				})
			}
		}
	}
	return found
}
