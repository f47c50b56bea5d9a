package parsers

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DurationMode controls how fractional digit groups are converted.
type DurationMode int

const (
	// IntegerOnly truncates fractional values, keeping only the whole part.
	IntegerOnly DurationMode = iota
	// AllowFractionalHours folds the fractional part of an hour value into
	// minutes, rounding to the nearest whole minute.
	AllowFractionalHours
)

// Duration is an extracted hours/minutes pair. Zero values are legal;
// a zero total is flagged by validation, never dropped at extraction time.
type Duration struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// TotalMinutes returns the duration collapsed to minutes.
func (d Duration) TotalMinutes() int {
	return d.Hours*60 + d.Minutes
}

var (
	compoundDurationPattern = regexp.MustCompile(`(?i)\((?:(\d+(?:\.\d+)?)\s*hours?)?\s*(?:(\d+(?:\.\d+)?)\s*minutes?)?(?:\s*\w+)?\)`)
	durationOnlyPattern     = regexp.MustCompile(`(?i)^\((?:(\d+)\s*hours?)?\s*(?:(\d+)\s*minutes?)?\)$`)
)

// ExtractDuration finds the first parenthesized duration in text.
// A parenthetical with no digit group at all, such as "()" or "(tbd)",
// is not a match.
func ExtractDuration(text string, mode DurationMode) (Duration, bool) {
	m := compoundDurationPattern.FindStringSubmatch(text)
	if m == nil || (m[1] == "" && m[2] == "") {
		return Duration{}, false
	}
	return durationFromGroups(m[1], m[2], mode), true
}

// FindDuration is ExtractDuration plus the exact substring the pattern
// matched, for callers that split a title away from its inline duration.
func FindDuration(text string, mode DurationMode) (Duration, string, bool) {
	loc := compoundDurationPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return Duration{}, "", false
	}
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}
	hours, minutes := group(1), group(2)
	if hours == "" && minutes == "" {
		return Duration{}, "", false
	}
	return durationFromGroups(hours, minutes, mode), text[loc[0]:loc[1]], true
}

// IsDurationOnly reports whether the trimmed line is nothing but a
// parenthesized whole-number duration.
func IsDurationOnly(line string) bool {
	return durationOnlyPattern.MatchString(strings.TrimSpace(line))
}

// FormatDuration renders an hours/minutes pair back into the
// parenthesized form, with singular units for 1.
func FormatDuration(hours, minutes int) string {
	if hours == 0 && minutes == 0 {
		return "(0 hours 0 minutes)"
	}
	parts := make([]string, 0, 2)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", hours, pluralize(hours, "hour")))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", minutes, pluralize(minutes, "minute")))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

func durationFromGroups(hours, minutes string, mode DurationMode) Duration {
	var d Duration
	if hours != "" {
		v, err := strconv.ParseFloat(hours, 64)
		if err == nil {
			d.Hours = int(v)
			if mode == AllowFractionalHours {
				d.Minutes += int(math.Round(math.Mod(v, 1) * 60))
			}
		}
	}
	if minutes != "" {
		v, err := strconv.ParseFloat(minutes, 64)
		if err == nil {
			if mode == AllowFractionalHours {
				d.Minutes += int(math.Round(v))
			} else {
				d.Minutes += int(v)
			}
		}
	}
	return d
}
