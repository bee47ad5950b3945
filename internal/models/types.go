package models

import (
	"errors"
	"strings"
	"time"
)

// ErrAlreadyReviewed is returned when a human review is recorded twice.
var ErrAlreadyReviewed = errors.New("moderation result already reviewed")

// PIIType identifies a family of personal information.
type PIIType string

const (
	PIIPhoneNumber PIIType = "phone_number"
	PIIEmail       PIIType = "email"
	PIISocialMedia PIIType = "social_media"
	PIIName        PIIType = "name"
	PIIAddress     PIIType = "address"
	PIICreditCard  PIIType = "credit_card"
	PIISSN         PIIType = "ssn"
)

// Rect is a region in pixel space. The zero value means "no region".
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty reports whether the rect covers no area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// PIIDetection is a single located piece of personal information.
type PIIDetection struct {
	Type       PIIType `json:"type"`
	Location   Rect    `json:"location"`   // empty for text-path detections
	Confidence float64 `json:"confidence"` // 0.0 to 1.0
	Text       string  `json:"text"`       // exact match, kept for audit and appeal
}

// ContentType is the kind of submission being judged.
type ContentType string

const (
	ContentPost    ContentType = "post"
	ContentReview  ContentType = "review"
	ContentImage   ContentType = "image"
	ContentComment ContentType = "comment"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentPost, ContentReview, ContentImage, ContentComment:
		return true
	}
	return false
}

// ContentRef identifies the content a verdict is about. Both fields come from
// the caller.
type ContentRef struct {
	ContentID   string
	ContentType ContentType
}

// Status is the automated verdict.
type Status string

const (
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusFlagged  Status = "flagged"
	StatusPending  Status = "pending"
)

// Valid reports whether s is one of the four verdict states.
func (s Status) Valid() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusFlagged, StatusPending:
		return true
	}
	return false
}

// ModerationResult is the verdict for one moderation request. Everything but
// the review fields is fixed at creation.
type ModerationResult struct {
	ContentID   string         `json:"content_id"`
	ContentType ContentType    `json:"content_type"`
	Status      Status         `json:"status"`
	Flags       FlagSet        `json:"flags"`
	Confidence  float64        `json:"confidence"`
	Severity    Severity       `json:"severity"`
	Reason      string         `json:"reason,omitempty"`
	DetectedPII []PIIDetection `json:"detected_pii"`
	CreatedAt   time.Time      `json:"created_at"`

	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy *string    `json:"reviewed_by,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

// Reviewed reports whether a moderator has already acted on the result.
func (r *ModerationResult) Reviewed() bool {
	return r.ReviewedAt != nil
}

// ApplyReview fills the review fields. It succeeds at most once.
func (r *ModerationResult) ApplyReview(by, notes string, at time.Time) error {
	if r.Reviewed() {
		return ErrAlreadyReviewed
	}
	by = strings.TrimSpace(by)
	r.ReviewedAt = &at
	r.ReviewedBy = &by
	r.Notes = &notes
	return nil
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MinConfidence returns the smallest of the given confidences, or 1 when none
// are given.
func MinConfidence(values ...float64) float64 {
	lowest := 1.0
	for _, v := range values {
		if v < lowest {
			lowest = v
		}
	}
	return Clamp01(lowest)
}
