package ai

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/digimosa/content-moderation/internal/classifier"
	"github.com/digimosa/content-moderation/internal/models"
)

const maxPromptRunes = 4000

// LLMClassifier asks an Ollama model for a verdict and stacks it on a
// deterministic fallback. The fallback verdict is always part of the result,
// so the model can add flags or lower confidence but never clear a rule hit.
type LLMClassifier struct {
	client   *OllamaClient
	fallback classifier.TextClassifier
	log      *zap.Logger
}

func NewLLMClassifier(log *zap.Logger, client *OllamaClient, fallback classifier.TextClassifier) *LLMClassifier {
	return &LLMClassifier{client: client, fallback: fallback, log: log.Named("llm_classifier")}
}

var _ classifier.TextClassifier = (*LLMClassifier)(nil)

func (c *LLMClassifier) Classify(ctx context.Context, text string) classifier.Classification {
	base := c.fallback.Classify(ctx, text)
	if strings.TrimSpace(text) == "" {
		return base
	}

	verdict, err := c.ask(ctx, text)
	if err != nil {
		c.log.Warn("LLM classification unavailable, using rule verdict", zap.Error(err))
		return base
	}
	return classifier.Combine(base, verdict)
}

func (c *LLMClassifier) ask(ctx context.Context, text string) (classifier.Classification, error) {
	if utf8.RuneCountInString(text) > maxPromptRunes {
		text = string([]rune(text)[:maxPromptRunes]) + "...(truncated)"
	}

	var instructions strings.Builder
	for _, f := range models.AllFlags {
		fmt.Fprintf(&instructions, "\nCategory: %s\n%s\n", f, PromptTemplates[f])
	}

	answer, err := c.client.callOllama(ctx, GenerateRequest{
		Prompt: fmt.Sprintf(classifyPromptBase, instructions.String(), text),
		Format: "json",
	})
	if err != nil {
		return classifier.Classification{}, err
	}

	var parsed struct {
		Flags      []string `json:"flags"`
		Confidence *float64 `json:"confidence"`
	}
	if err := decodeJSON(answer, &parsed); err != nil {
		return classifier.Classification{}, err
	}
	if parsed.Confidence == nil {
		return classifier.Classification{}, fmt.Errorf("%w: missing confidence", ErrBadResponse)
	}

	out := classifier.Classification{Confidence: models.Clamp01(*parsed.Confidence)}
	for _, name := range parsed.Flags {
		f := models.Flag(strings.ToLower(strings.TrimSpace(name)))
		if !f.Valid() {
			c.log.Debug("ignoring unknown flag from model", zap.String("flag", name))
			continue
		}
		out.Flags = out.Flags.Add(f)
	}
	if len(out.Flags) == 0 {
		// a clean answer never lowers confidence
		out.Confidence = 1
	}
	return out, nil
}
