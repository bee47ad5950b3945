// Package moderation turns channel signals into a single queueable verdict.
package moderation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/digimosa/content-moderation/internal/classifier"
	"github.com/digimosa/content-moderation/internal/extractor"
	"github.com/digimosa/content-moderation/internal/imaging"
	"github.com/digimosa/content-moderation/internal/metrics"
	"github.com/digimosa/content-moderation/internal/models"
)

const (
	opText      = "text"
	opImage     = "image"
	opComposite = "composite"
)

// Engine is the entry point of the pipeline. It holds only injected,
// stateless collaborators and is safe for concurrent use.
type Engine struct {
	log        *zap.Logger
	pii        *extractor.PIIDetector
	classifier classifier.TextClassifier
	analyzer   *imaging.Analyzer
	now        func() time.Time
}

func NewEngine(log *zap.Logger, pii *extractor.PIIDetector, cls classifier.TextClassifier, analyzer *imaging.Analyzer) *Engine {
	return &Engine{
		log:        log,
		pii:        pii,
		classifier: cls,
		analyzer:   analyzer,
		now:        time.Now,
	}
}

// channel is the signal contributed by one part of a submission.
type channel struct {
	flags      models.FlagSet
	confidence float64
	pii        []models.PIIDetection
}

func (e *Engine) textChannel(ctx context.Context, text string) (channel, error) {
	detections := e.pii.DetectInText(text)
	verdict := e.classifier.Classify(ctx, text)
	if err := ctx.Err(); err != nil {
		return channel{}, err
	}
	recordPII(detections, opText)
	return channel{flags: verdict.Flags, confidence: verdict.Confidence, pii: detections}, nil
}

func (e *Engine) imageChannel(ctx context.Context, image []byte) (channel, error) {
	a, err := e.analyzer.Analyze(ctx, image)
	if err != nil {
		return channel{}, err
	}
	recordPII(a.Detections, opImage)
	return channel{flags: a.Flags, confidence: a.Confidence, pii: a.Detections}, nil
}

// ModerateText judges a piece of text. The only error is cancellation of ctx.
func (e *Engine) ModerateText(ctx context.Context, ref models.ContentRef, text string) (*models.ModerationResult, error) {
	start := time.Now()
	ch, err := e.textChannel(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("moderate text: %w", err)
	}
	return e.finish(opText, ref, start, ch), nil
}

// ModerateImage judges a single image. Unreadable images are judged on the
// baseline instead of failing; the only error is cancellation of ctx.
func (e *Engine) ModerateImage(ctx context.Context, ref models.ContentRef, image []byte) (*models.ModerationResult, error) {
	start := time.Now()
	if ref.ContentType == "" {
		ref.ContentType = models.ContentImage
	}
	ch, err := e.imageChannel(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("moderate image: %w", err)
	}
	return e.finish(opImage, ref, start, ch), nil
}

// LocateImagePII runs the image channel for its PII detections only. No
// verdict is produced or counted, so callers that just need regions to
// redact do not skew the verdict metrics.
func (e *Engine) LocateImagePII(ctx context.Context, image []byte) ([]models.PIIDetection, error) {
	a, err := e.analyzer.Analyze(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("locate image pii: %w", err)
	}
	return a.Detections, nil
}

// ModerateComposite judges text plus any number of images as one submission.
// Channels run concurrently; flags are unioned, PII is concatenated text first
// then images in order, and the weakest channel confidence wins. If ctx is
// cancelled no partial verdict is produced.
func (e *Engine) ModerateComposite(ctx context.Context, ref models.ContentRef, text string, images [][]byte) (*models.ModerationResult, error) {
	start := time.Now()
	channels := make([]channel, 1+len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ch, err := e.textChannel(gctx, text)
		channels[0] = ch
		return err
	})
	for i, img := range images {
		g.Go(func() error {
			ch, err := e.imageChannel(gctx, img)
			channels[i+1] = ch
			return err
		})
	}
	if err := g.Wait(); err != nil {
		e.log.Info("composite moderation abandoned",
			zap.String("content_id", ref.ContentID),
			zap.Int("images", len(images)),
			zap.Error(err))
		return nil, fmt.Errorf("moderate composite: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("moderate composite: %w", err)
	}

	return e.finish(opComposite, ref, start, merge(channels)), nil
}

// ModerateReview is the composite form used for full review submissions.
func (e *Engine) ModerateReview(ctx context.Context, contentID string, text string, images [][]byte) (*models.ModerationResult, error) {
	return e.ModerateComposite(ctx, models.ContentRef{ContentID: contentID, ContentType: models.ContentReview}, text, images)
}

// Moderate dispatches a loaded submission to the matching operation.
func (e *Engine) Moderate(ctx context.Context, ref models.ContentRef, sub models.Submission) (*models.ModerationResult, error) {
	switch {
	case len(sub.Images) == 0:
		return e.ModerateText(ctx, ref, sub.Text)
	case sub.Text == "" && len(sub.Images) == 1:
		return e.ModerateImage(ctx, ref, sub.Images[0])
	default:
		return e.ModerateComposite(ctx, ref, sub.Text, sub.Images)
	}
}

func merge(channels []channel) channel {
	out := channel{confidence: 1}
	for _, ch := range channels {
		out.flags = out.flags.Union(ch.flags)
		out.pii = append(out.pii, ch.pii...)
		out.confidence = models.MinConfidence(out.confidence, ch.confidence)
	}
	return out
}

func (e *Engine) finish(op string, ref models.ContentRef, start time.Time, ch channel) *models.ModerationResult {
	flags := ch.flags
	if flags == nil {
		flags = models.FlagSet{}
	}
	pii := ch.pii
	if pii == nil {
		pii = []models.PIIDetection{}
	}
	confidence := models.Clamp01(ch.confidence)
	severity := flags.MaxSeverity()

	result := &models.ModerationResult{
		ContentID:   ref.ContentID,
		ContentType: ref.ContentType,
		Status:      Decide(confidence, severity, len(pii)),
		Flags:       flags,
		Confidence:  confidence,
		Severity:    severity,
		Reason:      Reason(flags),
		DetectedPII: pii,
		CreatedAt:   e.now().UTC(),
	}

	metrics.Verdicts.WithLabelValues(op, string(result.Status)).Inc()
	metrics.Latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	for _, f := range flags {
		metrics.FlagsRaised.WithLabelValues(string(f)).Inc()
	}

	e.log.Info("moderation verdict",
		zap.String("operation", op),
		zap.String("content_id", ref.ContentID),
		zap.String("content_type", string(ref.ContentType)),
		zap.String("status", string(result.Status)),
		zap.Stringer("severity", result.Severity),
		zap.Float64("confidence", result.Confidence),
		zap.Strings("flags", flagNames(flags)),
		zap.Int("pii_count", len(pii)),
		zap.Duration("elapsed", time.Since(start)))
	return result
}

func recordPII(detections []models.PIIDetection, channel string) {
	for _, d := range detections {
		metrics.PIIDetections.WithLabelValues(string(d.Type), channel).Inc()
	}
}

func flagNames(flags models.FlagSet) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	return out
}
