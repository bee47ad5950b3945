package detectors

import (
	"regexp"

	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/rules"
)

// Sixteen digits in groups of four, optionally separated by a space or dash.
// No Luhn check: anything card-shaped is reported.
var creditCardPattern = regexp.MustCompile(`\b(?:\d{4}[ -]?){3}\d{4}\b`)

type CreditCardDetector struct {
	BaseRegexDetector
}

func NewCreditCardDetector() *CreditCardDetector {
	return &CreditCardDetector{
		BaseRegexDetector: BaseRegexDetector{
			Pattern: creditCardPattern,
			Label:   models.PIICreditCard,
			Score:   rules.CreditCardConfidence,
		},
	}
}
