package detectors

import (
	"regexp"

	"github.com/digimosa/content-moderation/internal/models"
)

// Match is a raw pattern hit with its byte span in the scanned text.
type Match struct {
	Type  models.PIIType
	Value string
	Start int
	End   int
}

// Overlaps reports whether the spans of m and o intersect.
func (m Match) Overlaps(o Match) bool {
	return m.Start < o.End && o.Start < m.End
}

// Detector defines the interface for PII detection strategies
type Detector interface {
	Detect(content string) []Match
	Type() models.PIIType
	Confidence() float64
}

// BaseRegexDetector implements common regex scanning logic. When the pattern
// has a capture group, the first group is reported instead of the full match.
type BaseRegexDetector struct {
	Pattern *regexp.Regexp
	Label   models.PIIType
	Score   float64
}

func (d *BaseRegexDetector) Detect(content string) []Match {
	if d.Pattern == nil || content == "" {
		return nil
	}

	var found []Match
	for _, loc := range d.Pattern.FindAllStringSubmatchIndex(content, -1) {
		start, end := loc[0], loc[1]
		if len(loc) >= 4 && loc[2] >= 0 {
			start, end = loc[2], loc[3]
		}
		found = append(found, Match{
			Type:  d.Label,
			Value: content[start:end],
			Start: start,
			End:   end,
		})
	}
	return found
}

func (d *BaseRegexDetector) Type() models.PIIType {
	return d.Label
}

func (d *BaseRegexDetector) Confidence() float64 {
	return d.Score
}
