package ai

import "github.com/digimosa/content-moderation/internal/models"

// PromptTemplates maps each flag to the instruction the model gets for it.
var PromptTemplates = map[models.Flag]string{
	models.FlagInappropriateContent: `
		- Profanity, slurs used as insults, crude sexual language aimed at nobody in particular.
		- Casual mild swearing between friends is still inappropriate on a dating platform.
	`,
	models.FlagHarassment: `
		- Insults, threats or demeaning language aimed at a person.
		- Encouraging self-harm ("kill yourself") is always harassment.
	`,
	models.FlagSpam: `
		- Advertising, links to other services, requests to move off-platform for money.
		- Repeated shouting, excessive punctuation, copy-paste promotions.
	`,
	models.FlagHateSpeech: `
		- Attacks on people for race, ethnicity, religion, gender, sexuality or disability.
		- Extremist slogans and dehumanizing language.
	`,
	models.FlagSexualContent: `
		- Explicit sexual descriptions, solicitation, requests for nude pictures.
		- Flirting without explicit content is NOT sexual content.
	`,
	models.FlagViolentContent: `
		- Descriptions or threats of physical violence, weapons used against people.
	`,
	models.FlagMisinformation: `
		- Conspiracy claims, health misinformation, claims presented as suppressed truth.
	`,
}

const classifyPromptBase = `You are a content moderator for a dating platform. Decide which policy categories the user text below violates.

Categories:
%s

User text:
"""
%s
"""
Return valid JSON only, no markdown. Format: {"flags": ["category", ...], "confidence": 0.0-1.0}
Use only the category names listed above. Return an empty list when nothing applies.
"confidence" is how certain you are of the whole answer:
- 0.9-1.0: Certain
- 0.7-0.8: Likely
- below 0.7: Unsure, a human should look at it`

const ocrPrompt = `Read every piece of text visible in this image.
Return valid JSON only, no markdown. Format:
{"fragments": [{"text": "...", "box": {"x": 0.0, "y": 0.0, "width": 0.0, "height": 0.0}, "confidence": 0.0-1.0}]}
Box coordinates are fractions of the image size with the origin at the top-left corner.
One fragment per line of text. Return {"fragments": []} if the image has no text.`
