// Package rules holds every hand-tuned constant and keyword table used by the
// moderation pipeline. Tuning happens here, never in control flow.
package rules

// PII family confidences for the text path.
const (
	PhoneConfidence      = 0.90
	EmailConfidence      = 0.95
	SocialConfidence     = 0.85
	NameIntroConfidence  = 0.70
	AddressConfidence    = 0.80
	CreditCardConfidence = 0.90
	SSNConfidence        = 0.95
)

// Auto-action thresholds by severity.
const (
	ThresholdLow      = 0.60
	ThresholdMedium   = 0.70
	ThresholdHigh     = 0.80
	ThresholdCritical = 0.90
)

// Category ceilings and per-match penalties. The running classifier
// confidence becomes min(running, Base - Step*count).
const (
	InappropriateBase = 0.85
	InappropriateStep = 0.05

	HarassmentBase = 0.90
	HarassmentStep = 0.03

	SpamBase = 0.80
	SpamStep = 0.05

	HateSpeechBase = 0.95
	HateSpeechStep = 0.02

	SexualCeiling         = 0.80
	ViolentCeiling        = 0.85
	MisinformationCeiling = 0.70

	// sexual and violent content need this many distinct terms
	MinDistinctExplicitTerms = 2
)

// Spam signals.
const (
	SpamMinSignals      = 2
	SpamShortTextRunes  = 10
	SpamUppercaseRatio  = 0.5
	SpamMaxExclamations = 3
	SpamMinTokens       = 3
)

// Image heuristics.
const (
	ImageBaselineConfidence = 0.8
	ImageSmallConfidence    = 0.7
	ImageSmallDimension     = 100
)

// Redaction drawing.
const (
	RedactionFillAlpha    = 0xE6 // ~90% opacity
	RedactionLabel        = "REDACTED"
	RedactionLabelRatio   = 0.6
	RedactionMaxLabelSize = 24.0
	RedactionMinLabelSize = 4.0
	RedactionLabelDPI     = 72.0
)

// Keyword tables. Entries are lowercase and matched on word boundaries.
var (
	ProfanityTerms = []string{
		"fuck", "fucking", "shit", "bitch", "asshole", "bastard", "dick",
		"cunt", "piss off", "motherfucker", "slut", "whore", "retard", "douchebag",
	}

	HarassmentPhrases = []string{
		"kill yourself", "kys", "worthless", "nobody likes you", "nobody loves you",
		"you should die", "you deserve to die", "hurt yourself", "end your life",
		"i will find you", "i know where you live", "you're pathetic", "you are pathetic",
		"disgusting pig", "ugly loser", "go die",
	}

	PromotionalPhrases = []string{
		"click here", "buy now", "limited time", "act now",
	}

	HateSpeechTerms = []string{
		"white power", "heil hitler", "subhuman", "inferior race", "master race",
		"ethnic cleansing", "race traitor", "go back to your country",
		"gas the", "14 words",
	}

	SexualTerms = []string{
		"nude", "nudes", "naked", "porn", "sex", "sexy", "horny", "explicit",
		"onlyfans", "send pics", "hookup", "xxx",
	}

	ViolentTerms = []string{
		"kill", "murder", "stab", "shoot", "gun", "bomb", "beat you",
		"blood", "weapon", "attack", "strangle", "torture",
	}

	MisinformationPhrases = []string{
		"fake news", "plandemic", "the government is hiding", "wake up sheeple",
		"they don't want you to know", "vaccines cause", "flat earth",
		"mainstream media lies", "do your own research", "crisis actor",
	}
)
