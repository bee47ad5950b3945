package models

import (
	"fmt"
	"sort"

	"github.com/digimosa/content-moderation/internal/rules"
)

// Severity is the ordinal weight of a violation category.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "low"
	}
}

// ParseSeverity is the inverse of String.
func ParseSeverity(v string) (Severity, error) {
	switch v {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	}
	return SeverityLow, fmt.Errorf("unknown severity %q", v)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AutoActionThreshold is the confidence at or above which a verdict of this
// severity is acted on automatically.
func (s Severity) AutoActionThreshold() float64 {
	switch s {
	case SeverityCritical:
		return rules.ThresholdCritical
	case SeverityHigh:
		return rules.ThresholdHigh
	case SeverityMedium:
		return rules.ThresholdMedium
	default:
		return rules.ThresholdLow
	}
}

// Flag is a policy-violation category.
type Flag string

const (
	FlagInappropriateContent Flag = "inappropriate_content"
	FlagHarassment           Flag = "harassment"
	FlagSpam                 Flag = "spam"
	FlagHateSpeech           Flag = "hate_speech"
	FlagSexualContent        Flag = "sexual_content"
	FlagViolentContent       Flag = "violent_content"
	FlagMisinformation       Flag = "misinformation"
)

// AllFlags lists every flag in canonical order.
var AllFlags = []Flag{
	FlagInappropriateContent,
	FlagHarassment,
	FlagSpam,
	FlagHateSpeech,
	FlagSexualContent,
	FlagViolentContent,
	FlagMisinformation,
}

type flagInfo struct {
	order       int
	severity    Severity
	description string
}

var flagTable = map[Flag]flagInfo{
	FlagInappropriateContent: {0, SeverityMedium, "Inappropriate language"},
	FlagHarassment:           {1, SeverityHigh, "Harassment or bullying"},
	FlagSpam:                 {2, SeverityLow, "Spam or promotional content"},
	FlagHateSpeech:           {3, SeverityCritical, "Hate speech"},
	FlagSexualContent:        {4, SeverityHigh, "Sexual content"},
	FlagViolentContent:       {5, SeverityHigh, "Violent content"},
	FlagMisinformation:       {6, SeverityMedium, "Potential misinformation"},
}

// Valid reports whether f is a known flag.
func (f Flag) Valid() bool {
	_, ok := flagTable[f]
	return ok
}

func (f Flag) Severity() Severity {
	return flagTable[f].severity
}

func (f Flag) AutoActionThreshold() float64 {
	return f.Severity().AutoActionThreshold()
}

func (f Flag) Description() string {
	if info, ok := flagTable[f]; ok {
		return info.description
	}
	return string(f)
}

// FlagSet is a deduplicated set of flags, always kept in canonical order.
type FlagSet []Flag

// NewFlagSet builds a set from flags, dropping duplicates and unknown values.
func NewFlagSet(flags ...Flag) FlagSet {
	var s FlagSet
	for _, f := range flags {
		s = s.Add(f)
	}
	return s
}

// Add returns the set with f included.
func (s FlagSet) Add(f Flag) FlagSet {
	if !f.Valid() || s.Contains(f) {
		return s
	}
	out := make(FlagSet, len(s), len(s)+1)
	copy(out, s)
	out = append(out, f)
	sort.Slice(out, func(i, j int) bool {
		return flagTable[out[i]].order < flagTable[out[j]].order
	})
	return out
}

// Union returns a new set holding every flag of s and other.
func (s FlagSet) Union(other FlagSet) FlagSet {
	out := make(FlagSet, 0, len(s)+len(other))
	out = append(out, s...)
	for _, f := range other {
		out = out.Add(f)
	}
	return out
}

func (s FlagSet) Contains(f Flag) bool {
	for _, have := range s {
		if have == f {
			return true
		}
	}
	return false
}

// MaxSeverity is the highest severity in the set, or low when empty.
func (s FlagSet) MaxSeverity() Severity {
	max := SeverityLow
	for _, f := range s {
		if sev := f.Severity(); sev > max {
			max = sev
		}
	}
	return max
}
