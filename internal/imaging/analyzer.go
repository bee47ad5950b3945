// Package imaging runs the image channel of the pipeline: a size heuristic
// plus OCR, with the recognized text fed through PII detection and text
// classification.
package imaging

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/digimosa/content-moderation/internal/classifier"
	"github.com/digimosa/content-moderation/internal/extractor"
	"github.com/digimosa/content-moderation/internal/imgcodec"
	"github.com/digimosa/content-moderation/internal/metrics"
	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/ocr"
	"github.com/digimosa/content-moderation/internal/rules"
)

// Analysis is everything learned from one image.
type Analysis struct {
	Flags      models.FlagSet
	Confidence float64
	Detections []models.PIIDetection
	Text       string
	Width      int
	Height     int
	OCRFailed  bool
}

// Options tune the analyzer.
type Options struct {
	// OCRTimeout bounds each recognizer call; zero means no bound.
	OCRTimeout time.Duration
	// FailClosedOnOCRError drops the channel confidence to zero when OCR
	// fails, which routes the verdict to human review.
	FailClosedOnOCRError bool
}

type Analyzer struct {
	log        *zap.Logger
	recognizer ocr.Recognizer
	pii        *extractor.PIIDetector
	classifier classifier.TextClassifier
	opts       Options
}

func NewAnalyzer(log *zap.Logger, recognizer ocr.Recognizer, pii *extractor.PIIDetector, cls classifier.TextClassifier, opts Options) *Analyzer {
	if recognizer == nil {
		recognizer = ocr.Disabled{}
	}
	return &Analyzer{
		log:        log,
		recognizer: ocr.WithTimeout(recognizer, opts.OCRTimeout),
		pii:        pii,
		classifier: cls,
		opts:       opts,
	}
}

// Analyze never fails on bad image data; the only error is cancellation of
// ctx.
func (a *Analyzer) Analyze(ctx context.Context, image []byte) (Analysis, error) {
	out := Analysis{Confidence: rules.ImageBaselineConfidence}

	info, err := imgcodec.Inspect(image)
	if err != nil {
		a.log.Debug("image not decodable, using baseline", zap.Int("bytes", len(image)), zap.Error(err))
		return out, nil
	}
	out.Width, out.Height = info.Width, info.Height

	if info.Width < rules.ImageSmallDimension && info.Height < rules.ImageSmallDimension {
		out.Flags = out.Flags.Add(models.FlagSpam)
		out.Confidence = rules.ImageSmallConfidence
	}

	obs, err := a.recognizer.RecognizeText(ctx, image)
	if err != nil {
		if ctx.Err() != nil {
			return Analysis{}, ctx.Err()
		}
		metrics.OCRFailures.Inc()
		a.log.Warn("OCR failed, continuing without embedded text",
			zap.String("format", info.Format),
			zap.Bool("fail_closed", a.opts.FailClosedOnOCRError),
			zap.Error(err))
		out.OCRFailed = true
		if a.opts.FailClosedOnOCRError {
			out.Confidence = 0
		}
		return out, nil
	}

	out.Detections = a.pii.DetectInObservations(obs, info.Width, info.Height)
	out.Text = joinText(obs)
	if out.Text != "" {
		text := a.classifier.Classify(ctx, out.Text)
		merged := classifier.Combine(classifier.Classification{Flags: out.Flags, Confidence: out.Confidence}, text)
		out.Flags, out.Confidence = merged.Flags, merged.Confidence
	}
	return out, nil
}

func joinText(obs []ocr.Observation) string {
	parts := make([]string, 0, len(obs))
	for _, o := range obs {
		if t := strings.TrimSpace(o.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
