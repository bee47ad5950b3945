package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/ocr"
)

// VisionOCR recognizes text with a multimodal Ollama model.
type VisionOCR struct {
	client *OllamaClient
}

func NewVisionOCR(client *OllamaClient) *VisionOCR {
	return &VisionOCR{client: client}
}

var _ ocr.Recognizer = (*VisionOCR)(nil)

type visionFragment struct {
	Text       string      `json:"text"`
	Box        models.Rect `json:"box"`
	Confidence *float64    `json:"confidence"`
}

func (v *VisionOCR) RecognizeText(ctx context.Context, image []byte) ([]ocr.Observation, error) {
	answer, err := v.client.callOllama(ctx, GenerateRequest{
		Prompt: ocrPrompt,
		Format: "json",
		Images: []string{base64.StdEncoding.EncodeToString(image)},
	})
	if err != nil {
		return nil, fmt.Errorf("vision ocr: %w", err)
	}

	var parsed struct {
		Fragments []visionFragment `json:"fragments"`
	}
	if err := decodeJSON(answer, &parsed); err != nil {
		return nil, fmt.Errorf("vision ocr: %w", err)
	}

	out := make([]ocr.Observation, 0, len(parsed.Fragments))
	for _, f := range parsed.Fragments {
		text := strings.TrimSpace(f.Text)
		if text == "" {
			continue
		}
		conf := 0.5
		if f.Confidence != nil {
			conf = models.Clamp01(*f.Confidence)
		}
		out = append(out, ocr.Observation{Text: text, Box: normalizeBox(f.Box), Confidence: conf})
	}
	return out, nil
}

// normalizeBox clips a model-reported box to the unit square.
func normalizeBox(b models.Rect) models.Rect {
	x0, y0 := models.Clamp01(b.X), models.Clamp01(b.Y)
	x1, y1 := models.Clamp01(b.X+b.Width), models.Clamp01(b.Y+b.Height)
	if x1 <= x0 || y1 <= y0 {
		return models.Rect{}
	}
	return models.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
