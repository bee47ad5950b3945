package detectors

import (
	"regexp"
	"sort"

	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/rules"
)

// North American formats: 555-123-4567, 555.123.4567, (555) 123-4567,
// +1 555 123 4567.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}-\d{3}-\d{4}\b`),
	regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{4}\b`),
	regexp.MustCompile(`\(\d{3}\)\s?\d{3}-\d{4}\b`),
	regexp.MustCompile(`\+1[\s.-]?\d{3}[\s.-]?\d{3}[\s.-]?\d{4}\b`),
}

// PhoneDetector runs every format variant and collapses hits whose spans
// overlap, keeping the longest.
type PhoneDetector struct {
	variants []BaseRegexDetector
}

func NewPhoneDetector() *PhoneDetector {
	d := &PhoneDetector{}
	for _, p := range phonePatterns {
		d.variants = append(d.variants, BaseRegexDetector{
			Pattern: p,
			Label:   models.PIIPhoneNumber,
			Score:   rules.PhoneConfidence,
		})
	}
	return d
}

func (d *PhoneDetector) Detect(content string) []Match {
	var candidates []Match
	for i := range d.variants {
		candidates = append(candidates, d.variants[i].Detect(content)...)
	}
	return dedupeBySpan(candidates)
}

func (d *PhoneDetector) Type() models.PIIType {
	return models.PIIPhoneNumber
}

func (d *PhoneDetector) Confidence() float64 {
	return rules.PhoneConfidence
}

// dedupeBySpan keeps the longest of any group of overlapping matches and
// returns the survivors in text order.
func dedupeBySpan(candidates []Match) []Match {
	if len(candidates) < 2 {
		return candidates
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		li := candidates[i].End - candidates[i].Start
		lj := candidates[j].End - candidates[j].Start
		if li != lj {
			return li > lj
		}
		return candidates[i].Start < candidates[j].Start
	})

	var kept []Match
	for _, c := range candidates {
		overlap := false
		for _, k := range kept {
			if c.Overlaps(k) {
				overlap = true
				break
			}
		}
		if !overlap {
			kept = append(kept, c)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}
