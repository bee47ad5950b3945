package detectors

import (
	"regexp"
	"strings"

	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/rules"
)

// Nine digits, optionally dashed as AAA-GG-SSSS.
var ssnPattern = regexp.MustCompile(`\b\d{3}-?\d{2}-?\d{4}\b`)

type SSNDetector struct {
	BaseRegexDetector
}

func NewSSNDetector() *SSNDetector {
	return &SSNDetector{
		BaseRegexDetector: BaseRegexDetector{
			Pattern: ssnPattern,
			Label:   models.PIISSN,
			Score:   rules.SSNConfidence,
		},
	}
}

// Detect overrides the base method to drop structurally impossible numbers.
func (d *SSNDetector) Detect(content string) []Match {
	candidates := d.BaseRegexDetector.Detect(content)

	var verified []Match
	for _, m := range candidates {
		if ValidSSN(m.Value) {
			verified = append(verified, m)
		}
	}
	return verified
}

// ValidSSN checks the area, group and serial blocks: area is not 000, 666 or
// 9xx, group is not 00 and serial is not 0000.
func ValidSSN(v string) bool {
	digits := strings.ReplaceAll(v, "-", "")
	if len(digits) != 9 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}

	area, group, serial := digits[:3], digits[3:5], digits[5:]
	switch {
	case area == "000", area == "666", area[0] == '9':
		return false
	case group == "00":
		return false
	case serial == "0000":
		return false
	}
	return true
}
