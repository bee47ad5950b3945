package detectors

import (
	"regexp"

	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/rules"
)

var addressPatterns = []*regexp.Regexp{
	// 123 Main Street, 42 N Oak Ave, 7 ELM RD. Street name and suffix must be
	// capitalized so "20 minutes down the road" stays prose.
	regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Z][A-Za-z0-9.'-]*\s+){1,4}` + streetSuffix + `\b\.?`),
	// State abbreviation followed by a ZIP or ZIP+4: "CA 94105", "NY 10001-1234"
	regexp.MustCompile(`\b[A-Z]{2}\s+\d{5}(?:-\d{4})?\b`),
}

const streetSuffix = `(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Way|Place|Pl|Terrace|Circle|` +
	`STREET|ST|AVENUE|AVE|ROAD|RD|BOULEVARD|BLVD|LANE|LN|DRIVE|DR|COURT|CT|WAY|PLACE|PL|TERRACE|CIRCLE)`

type AddressDetector struct {
	variants []BaseRegexDetector
}

func NewAddressDetector() *AddressDetector {
	d := &AddressDetector{}
	for _, p := range addressPatterns {
		d.variants = append(d.variants, BaseRegexDetector{
			Pattern: p,
			Label:   models.PIIAddress,
			Score:   rules.AddressConfidence,
		})
	}
	return d
}

func (d *AddressDetector) Detect(content string) []Match {
	var found []Match
	for i := range d.variants {
		found = append(found, d.variants[i].Detect(content)...)
	}
	return found
}

func (d *AddressDetector) Type() models.PIIType {
	return models.PIIAddress
}

func (d *AddressDetector) Confidence() float64 {
	return rules.AddressConfidence
}
