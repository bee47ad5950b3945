// Package classifier scores free text against the policy-violation
// categories.
package classifier

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/rules"
)

// Classification is the outcome of scoring one piece of text.
type Classification struct {
	Flags      models.FlagSet `json:"flags"`
	Confidence float64        `json:"confidence"`
}

// Clean is the verdict for text with no evidence of any violation.
func Clean() Classification {
	return Classification{Confidence: 1}
}

// Combine merges two classifications: flags are unioned and the lower
// confidence wins, so stacking classifiers can only make a verdict more
// cautious.
func Combine(a, b Classification) Classification {
	return Classification{
		Flags:      a.Flags.Union(b.Flags),
		Confidence: models.MinConfidence(a.Confidence, b.Confidence),
	}
}

// TextClassifier scores text. Implementations never fail: when they cannot
// reach a verdict they return Clean or a fallback.
type TextClassifier interface {
	Classify(ctx context.Context, text string) Classification
}

// termList matches a fixed list of lowercase terms on word boundaries.
type termList []*regexp.Regexp

func compileTerms(terms []string) termList {
	out := make(termList, 0, len(terms))
	for _, term := range terms {
		out = append(out, regexp.MustCompile(`\b`+regexp.QuoteMeta(term)+`\b`))
	}
	return out
}

// distinct counts how many different terms occur in lower.
func (l termList) distinct(lower string) int {
	n := 0
	for _, re := range l {
		if re.MatchString(lower) {
			n++
		}
	}
	return n
}

// KeywordClassifier is the deterministic reference classifier. Each category
// that fires lowers the running confidence to at most its own ceiling.
type KeywordClassifier struct {
	profanity      termList
	harassment     termList
	promotional    []string
	hate           termList
	sexual         termList
	violent        termList
	misinformation termList
}

// NewKeywordClassifier compiles the rule tables. Patterns are built from
// constants, so a bad one panics at startup rather than per call.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		profanity:      compileTerms(rules.ProfanityTerms),
		harassment:     compileTerms(rules.HarassmentPhrases),
		promotional:    rules.PromotionalPhrases,
		hate:           compileTerms(rules.HateSpeechTerms),
		sexual:         compileTerms(rules.SexualTerms),
		violent:        compileTerms(rules.ViolentTerms),
		misinformation: compileTerms(rules.MisinformationPhrases),
	}
}

var _ TextClassifier = (*KeywordClassifier)(nil)

func (c *KeywordClassifier) Classify(_ context.Context, text string) Classification {
	if strings.TrimSpace(text) == "" {
		return Clean()
	}

	lower := strings.ToLower(text)
	out := Clean()
	fire := func(flag models.Flag, ceiling float64) {
		out.Flags = out.Flags.Add(flag)
		out.Confidence = models.MinConfidence(out.Confidence, ceiling)
	}

	if n := c.profanity.distinct(lower); n > 0 {
		fire(models.FlagInappropriateContent, rules.InappropriateBase-rules.InappropriateStep*float64(n))
	}
	if n := c.harassment.distinct(lower); n > 0 {
		fire(models.FlagHarassment, rules.HarassmentBase-rules.HarassmentStep*float64(n))
	}
	if n := c.SpamSignals(text); n >= rules.SpamMinSignals {
		fire(models.FlagSpam, rules.SpamBase-rules.SpamStep*float64(n))
	}
	if n := c.hate.distinct(lower); n > 0 {
		fire(models.FlagHateSpeech, rules.HateSpeechBase-rules.HateSpeechStep*float64(n))
	}
	if c.sexual.distinct(lower) >= rules.MinDistinctExplicitTerms {
		fire(models.FlagSexualContent, rules.SexualCeiling)
	}
	if c.violent.distinct(lower) >= rules.MinDistinctExplicitTerms {
		fire(models.FlagViolentContent, rules.ViolentCeiling)
	}
	if c.misinformation.distinct(lower) > 0 {
		fire(models.FlagMisinformation, rules.MisinformationCeiling)
	}
	return out
}

// SpamSignals counts how many spam heuristics hold for text: very short,
// mostly uppercase, promotional wording, shouting, or too few words.
func (c *KeywordClassifier) SpamSignals(text string) int {
	runes := utf8.RuneCountInString(text)
	if runes == 0 {
		return 0
	}

	signals := 0
	if runes < rules.SpamShortTextRunes {
		signals++
	}

	upper := 0
	for _, r := range text {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if float64(upper)/float64(runes) > rules.SpamUppercaseRatio {
		signals++
	}

	lower := strings.ToLower(text)
	for _, phrase := range c.promotional {
		if strings.Contains(lower, phrase) {
			signals++
			break
		}
	}

	if strings.Count(text, "!") > rules.SpamMaxExclamations {
		signals++
	}
	if len(strings.Fields(text)) < rules.SpamMinTokens {
		signals++
	}
	return signals
}
