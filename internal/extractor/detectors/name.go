package detectors

import (
	"regexp"

	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/rules"
)

// Self-introductions: "my name is Jane Doe", "I'm Jane Doe", "call me Jane".
// Only the lead-in is case-insensitive; the name itself must be capitalized.
var nameIntroPattern = regexp.MustCompile(
	`\b(?:(?i:my name is|i'm|i’m)\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?|(?i:call me)\s+[A-Z][a-z]+)\b`,
)

type NameDetector struct {
	BaseRegexDetector
}

func NewNameDetector() *NameDetector {
	return &NameDetector{
		BaseRegexDetector: BaseRegexDetector{
			Pattern: nameIntroPattern,
			Label:   models.PIIName,
			Score:   rules.NameIntroConfidence,
		},
	}
}
