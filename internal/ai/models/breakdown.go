package models

import (
	"regexp"
	"strconv"
)

var ordinalPattern = regexp.MustCompile(`^(\d+)\.\s*`)

// Step is one timed block of a breakdown: a numbered title line, a
// parenthesized duration body, and optional bullet tips underneath.
type Step struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Bullets   []string `json:"bullets,omitempty"`
	Completed bool     `json:"completed"`
}

// Ordinal returns the leading step number of the title, or 0 when the
// title is not numbered.
func (s Step) Ordinal() int {
	m := ordinalPattern.FindStringSubmatch(s.Title)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// TitleRemainder returns the title with the leading "N. " prefix removed.
func (s Step) TitleRemainder() string {
	return ordinalPattern.ReplaceAllString(s.Title, "")
}

// Renumber rewrites the title so its leading ordinal becomes n while the
// remainder of the title is preserved verbatim.
func (s *Step) Renumber(n int) {
	s.Title = strconv.Itoa(n) + ". " + s.TitleRemainder()
}

// Breakdown is the structured form of a parsed breakdown blob.
// MinMinutes and MaxMinutes coincide; both are kept because the rendered
// totals show a range.
type Breakdown struct {
	Steps      []Step `json:"steps"`
	MinMinutes int    `json:"min_minutes"`
	MaxMinutes int    `json:"max_minutes"`
}

// CompletedCount returns how many steps are marked complete.
func (b *Breakdown) CompletedCount() int {
	n := 0
	for _, s := range b.Steps {
		if s.Completed {
			n++
		}
	}
	return n
}
