// Package rules maps detected counts and the hour of day to an alert.
package rules

import "github.com/maanas1234/Celestia-Hackathon/detection"

const (
	DefaultMinMen          = 2
	DefaultNightHour       = 20
	DefaultMultipleMenText = "Single woman with multiple men"
	DefaultNightText       = "Single woman at night"
)

// Rule is the alert trigger. Only scenes with exactly one woman can alert;
// the multiple-men condition takes precedence over the night condition.
type Rule struct {
	MinMen          int
	NightHour       int
	MultipleMenText string
	NightText       string
}

func Default() Rule {
	return Rule{
		MinMen:          DefaultMinMen,
		NightHour:       DefaultNightHour,
		MultipleMenText: DefaultMultipleMenText,
		NightText:       DefaultNightText,
	}
}

// WithDefaults fills zero-valued texts and a non-positive MinMen with the
// defaults. NightHour 0 is a valid setting and is kept.
func (r Rule) WithDefaults() Rule {
	if r.MinMen <= 0 {
		r.MinMen = DefaultMinMen
	}
	if r.MultipleMenText == "" {
		r.MultipleMenText = DefaultMultipleMenText
	}
	if r.NightText == "" {
		r.NightText = DefaultNightText
	}
	return r
}

// Evaluate returns the alert text for the counts at the given local hour
// (0-23), or ok=false when no alert applies.
func (r Rule) Evaluate(counts detection.FrameCounts, hour int) (text string, ok bool) {
	if counts.Women != 1 {
		return "", false
	}
	if counts.Men >= r.MinMen {
		return r.MultipleMenText, true
	}
	if hour >= r.NightHour {
		return r.NightText, true
	}
	return "", false
}
