package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"taskly-server/internal/ai/models"
)

// BreakdownMarker prefixes the model's final answer; marker lines are
// skipped by the scan and stripped before normalization.
const BreakdownMarker = "BREAKDOWN:"

var (
	gluedTitlePattern    = regexp.MustCompile(`(?i)^(\d+\.\s+.+?)\s*(\(\d+\s*hours?.*?\d*\s*minutes?\))$`)
	qualifierPattern     = regexp.MustCompile(`(?i)\((?:\s*)?(?:approx\.?|approximately|about|~)\s*`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
	edgeStarsPattern     = regexp.MustCompile(`^\*+|\*+$`)
	bulletPrefixPattern  = regexp.MustCompile(`^[*•]\s*`)
	stepNumberPattern    = regexp.MustCompile(`^\d+\.`)
	trailingColonPattern = regexp.MustCompile(`:+$`)
	markerPattern        = regexp.MustCompile(`(?i)BREAKDOWN:`)
)

// BreakdownParser turns a raw breakdown blob into structured steps.
type BreakdownParser struct{}

// NewBreakdownParser creates a parser for complete breakdown responses.
func NewBreakdownParser() *BreakdownParser {
	return &BreakdownParser{}
}

// GetType returns the type of parser
func (p *BreakdownParser) GetType() string {
	return "breakdown_string_parser"
}

// Parse strips the marker, normalizes glued lines, and runs the line scan.
func (p *BreakdownParser) Parse(input string) (interface{}, error) {
	raw := strings.TrimSpace(markerPattern.ReplaceAllString(strings.TrimSpace(input), ""))
	normalized := NormalizeBreakdown(raw)
	return ParseBreakdown(strings.Split(normalized, "\n")), nil
}

// NormalizeBreakdown splits lines where the model glued a numbered title
// and its duration together, so the duration lands on its own line.
func NormalizeBreakdown(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if m := gluedTitlePattern.FindStringSubmatch(line); m != nil {
			out = append(out, m[1], m[2])
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// ParseBreakdown scans breakdown lines into timed steps. A step is either
// a numbered title followed by a duration-only line, or a numbered title
// with an inline duration. Bullets attach to the step above them; any
// other line closes the open step.
func ParseBreakdown(lines []string) *models.Breakdown {
	b := &models.Breakdown{Steps: []models.Step{}}
	var current *models.Step
	total := 0

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, BreakdownMarker) {
			continue
		}

		clean := strings.TrimSpace(edgeStarsPattern.ReplaceAllString(line, ""))
		normalized := strings.TrimSpace(whitespacePattern.ReplaceAllString(
			qualifierPattern.ReplaceAllString(clean, "("), " "))

		if strings.HasPrefix(line, "*") || strings.HasPrefix(line, "•") {
			if current != nil {
				current.Bullets = append(current.Bullets, bulletPrefixPattern.ReplaceAllString(normalized, ""))
			}
			continue
		}

		if !stepNumberPattern.MatchString(normalized) {
			current = nil
			continue
		}

		var nextLine string
		if i+1 < len(lines) {
			nextLine = strings.TrimSpace(lines[i+1])
		}

		if IsDurationOnly(nextLine) {
			b.Steps = append(b.Steps, models.Step{
				ID:    stepID("next", i, line),
				Title: trailingColonPattern.ReplaceAllString(normalized, ""),
				Body:  nextLine,
			})
			if d, ok := ExtractDuration(nextLine, IntegerOnly); ok {
				total += d.TotalMinutes()
			}
			current = &b.Steps[len(b.Steps)-1]
			i++
			continue
		}

		if d, matched, ok := FindDuration(normalized, IntegerOnly); ok {
			title := strings.TrimSpace(strings.Replace(normalized, matched, "", 1))
			b.Steps = append(b.Steps, models.Step{
				ID:    stepID("inline", i, line),
				Title: trailingColonPattern.ReplaceAllString(title, ""),
				Body:  strings.TrimSpace(matched),
			})
			total += d.TotalMinutes()
			current = &b.Steps[len(b.Steps)-1]
			continue
		}

		current = nil
	}

	b.MinMinutes = total
	b.MaxMinutes = total
	return b
}

// RenderLines is the inverse of ParseBreakdown on the structured form:
// title line, duration line, then one "• " line per bullet.
func RenderLines(steps []models.Step) []string {
	lines := make([]string, 0, len(steps)*2)
	for _, s := range steps {
		lines = append(lines, s.Title, s.Body)
		for _, bullet := range s.Bullets {
			lines = append(lines, "• "+bullet)
		}
	}
	return lines
}

// TotalMinutes sums the durations of the given steps from their bodies.
func TotalMinutes(steps []models.Step) int {
	total := 0
	for _, s := range steps {
		if d, ok := ExtractDuration(s.Body, IntegerOnly); ok {
			total += d.TotalMinutes()
		}
	}
	return total
}

// FormatTotal renders a minute total the way step summaries display it.
func FormatTotal(minutes int) string {
	hrs := minutes / 60
	mins := minutes % 60
	if hrs > 0 && mins > 0 {
		return fmt.Sprintf("%d hrs %d mins", hrs, mins)
	}
	if hrs > 0 {
		return fmt.Sprintf("%d hrs", hrs)
	}
	return fmt.Sprintf("%d mins", mins)
}

func stepID(prefix string, index int, line string) string {
	runes := []rune(line)
	if len(runes) > 20 {
		runes = runes[:20]
	}
	return fmt.Sprintf("%s-%d-%s", prefix, index, whitespacePattern.ReplaceAllString(string(runes), "_"))
}
