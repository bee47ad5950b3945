package moderation

import (
	"strings"

	"github.com/digimosa/content-moderation/internal/models"
)

const multipleViolationsPrefix = "Multiple policy violations detected: "

// Decide maps an aggregate verdict onto a queue status. Any PII forces human
// review no matter how confident the classifiers are.
func Decide(confidence float64, severity models.Severity, piiCount int) models.Status {
	if piiCount > 0 {
		return models.StatusFlagged
	}
	if confidence < severity.AutoActionThreshold() {
		return models.StatusPending
	}
	switch severity {
	case models.SeverityCritical, models.SeverityHigh:
		return models.StatusRejected
	case models.SeverityMedium:
		return models.StatusFlagged
	default:
		return models.StatusApproved
	}
}

// Reason renders the human-readable explanation for flags. It is empty when
// nothing was flagged.
func Reason(flags models.FlagSet) string {
	switch len(flags) {
	case 0:
		return ""
	case 1:
		return flags[0].Description()
	}
	parts := make([]string, 0, len(flags))
	for _, f := range flags {
		parts = append(parts, f.Description())
	}
	return multipleViolationsPrefix + strings.Join(parts, ", ")
}
