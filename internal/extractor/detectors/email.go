package detectors

import (
	"regexp"

	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/rules"
)

// local@domain.tld
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

type EmailDetector struct {
	BaseRegexDetector
}

func NewEmailDetector() *EmailDetector {
	return &EmailDetector{
		BaseRegexDetector: BaseRegexDetector{
			Pattern: emailPattern,
			Label:   models.PIIEmail,
			Score:   rules.EmailConfidence,
		},
	}
}
