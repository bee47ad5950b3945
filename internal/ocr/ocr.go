// Package ocr defines the text-recognition collaborator used to read text
// rendered inside images.
package ocr

import (
	"context"
	"errors"
	"time"

	"github.com/digimosa/content-moderation/internal/models"
)

// ErrUnavailable is returned by recognizers that cannot serve requests.
var ErrUnavailable = errors.New("ocr: recognizer unavailable")

// Observation is one recognized text fragment. Box is normalized to [0,1]
// with the origin at the top-left corner of the image.
type Observation struct {
	Text       string      `json:"text"`
	Box        models.Rect `json:"box"`
	Confidence float64     `json:"confidence"`
}

// PixelBox converts the normalized box to pixel coordinates.
func (o Observation) PixelBox(width, height int) models.Rect {
	return models.Rect{
		X:      o.Box.X * float64(width),
		Y:      o.Box.Y * float64(height),
		Width:  o.Box.Width * float64(width),
		Height: o.Box.Height * float64(height),
	}
}

// Recognizer extracts text fragments from encoded image bytes. It may fail or
// time out; callers treat any error as "no text".
type Recognizer interface {
	RecognizeText(ctx context.Context, image []byte) ([]Observation, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, image []byte) ([]Observation, error)

func (f RecognizerFunc) RecognizeText(ctx context.Context, image []byte) ([]Observation, error) {
	return f(ctx, image)
}

// Disabled is a Recognizer for deployments without OCR.
type Disabled struct{}

func (Disabled) RecognizeText(context.Context, []byte) ([]Observation, error) {
	return nil, ErrUnavailable
}

// WithTimeout bounds every call to r by d. A zero or negative d returns r.
func WithTimeout(r Recognizer, d time.Duration) Recognizer {
	if d <= 0 {
		return r
	}
	return RecognizerFunc(func(ctx context.Context, image []byte) ([]Observation, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		type reply struct {
			obs []Observation
			err error
		}
		done := make(chan reply, 1)
		go func() {
			obs, err := r.RecognizeText(ctx, image)
			done <- reply{obs, err}
		}()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case rep := <-done:
			return rep.obs, rep.err
		}
	})
}
