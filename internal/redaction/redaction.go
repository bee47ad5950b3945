// Package redaction paints over image regions that contain PII.
package redaction

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/digimosa/content-moderation/internal/imgcodec"
	"github.com/digimosa/content-moderation/internal/metrics"
	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/rules"
)

var fillColor = color.NRGBA{A: rules.RedactionFillAlpha}

// Redactor draws an opaque box and a "REDACTED" label over every located
// detection. It is safe for concurrent use.
type Redactor struct {
	log  *zap.Logger
	font *opentype.Font
}

// New parses the embedded label font.
func New(log *zap.Logger) (*Redactor, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse label font: %w", err)
	}
	return &Redactor{log: log, font: f}, nil
}

// Redact returns a redacted copy of the encoded image. When no detection
// carries a region the input is returned as is.
func (r *Redactor) Redact(data []byte, detections []models.PIIDetection) ([]byte, error) {
	if !hasRegion(detections) {
		return data, nil
	}

	src, format, err := imgcodec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("redact: %w", err)
	}
	out := r.RedactImage(src, detections)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, out, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(&buf, out)
	}
	if err != nil {
		return nil, fmt.Errorf("encode redacted image: %w", err)
	}
	return buf.Bytes(), nil
}

// RedactImage draws src and then, in order, fills and labels each detection
// box. Later boxes paint over earlier ones where they overlap.
func (r *Redactor) RedactImage(src image.Image, detections []models.PIIDetection) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	fill := image.NewUniform(fillColor)
	for _, d := range detections {
		if d.Location.IsEmpty() {
			continue
		}
		box := pixelRect(d.Location, bounds)
		if box.Empty() {
			continue
		}
		draw.Draw(dst, box, fill, image.Point{}, draw.Over)
		r.label(dst, box)
		metrics.Redactions.Inc()
	}
	return dst
}

func (r *Redactor) label(dst *image.RGBA, box image.Rectangle) {
	size := float64(box.Dy()) * rules.RedactionLabelRatio
	if size > rules.RedactionMaxLabelSize {
		size = rules.RedactionMaxLabelSize
	}

	face, err := r.face(size)
	if err != nil {
		r.log.Warn("label face", zap.Float64("size", size), zap.Error(err))
		return
	}
	width := font.MeasureString(face, rules.RedactionLabel).Ceil()
	if width > box.Dx() {
		face.Close()
		size = size * float64(box.Dx()) / float64(width)
		if face, err = r.face(size); err != nil {
			return
		}
		width = font.MeasureString(face, rules.RedactionLabel).Ceil()
	}
	defer face.Close()
	if size < rules.RedactionMinLabelSize {
		return
	}

	m := face.Metrics()
	textHeight := (m.Ascent + m.Descent).Ceil()
	x := box.Min.X + (box.Dx()-width)/2
	y := box.Min.Y + (box.Dy()-textHeight)/2 + m.Ascent.Ceil()

	d := font.Drawer{
		Dst:  dst.SubImage(box).(*image.RGBA),
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(rules.RedactionLabel)
}

func (r *Redactor) face(size float64) (font.Face, error) {
	return opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     rules.RedactionLabelDPI,
		Hinting: font.HintingFull,
	})
}

// pixelRect rounds loc outward to whole pixels, shifts it into the image's
// coordinate space and clips it to bounds.
func pixelRect(loc models.Rect, bounds image.Rectangle) image.Rectangle {
	x0 := int(loc.X)
	y0 := int(loc.Y)
	x1 := int(loc.X + loc.Width + 0.999)
	y1 := int(loc.Y + loc.Height + 0.999)
	return image.Rect(x0, y0, x1, y1).Add(bounds.Min).Intersect(bounds)
}

func hasRegion(detections []models.PIIDetection) bool {
	for _, d := range detections {
		if !d.Location.IsEmpty() {
			return true
		}
	}
	return false
}
