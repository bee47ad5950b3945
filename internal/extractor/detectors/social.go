package detectors

import (
	"regexp"

	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/rules"
)

// An @handle not glued to a preceding word (so the domain half of an email
// is not reported), or a profile URL on one of the major platforms.
var socialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|[^\w.@])(@[a-z0-9_](?:[a-z0-9_.]{1,29}))`),
	regexp.MustCompile(`(?i)\b(?:www\.)?(?:instagram\.com|twitter\.com|x\.com|facebook\.com|fb\.com|tiktok\.com|snapchat\.com/add)/@?[a-z0-9_.]{2,30}`),
}

type SocialMediaDetector struct {
	variants []BaseRegexDetector
}

func NewSocialMediaDetector() *SocialMediaDetector {
	d := &SocialMediaDetector{}
	for _, p := range socialPatterns {
		d.variants = append(d.variants, BaseRegexDetector{
			Pattern: p,
			Label:   models.PIISocialMedia,
			Score:   rules.SocialConfidence,
		})
	}
	return d
}

func (d *SocialMediaDetector) Detect(content string) []Match {
	var found []Match
	for i := range d.variants {
		found = append(found, d.variants[i].Detect(content)...)
	}
	return dedupeBySpan(found)
}

func (d *SocialMediaDetector) Type() models.PIIType {
	return models.PIISocialMedia
}

func (d *SocialMediaDetector) Confidence() float64 {
	return rules.SocialConfidence
}
