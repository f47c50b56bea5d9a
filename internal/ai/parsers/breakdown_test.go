package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskly-server/internal/ai/models"
)

func TestNormalizeBreakdown(t *testing.T) {
	t.Run("splits glued title and duration", func(t *testing.T) {
		got := NormalizeBreakdown("1. Research the subject (2 hours 30 minutes)")
		assert.Equal(t, "1. Research the subject\n(2 hours 30 minutes)", got)
	})

	t.Run("leaves minutes-only titles glued", func(t *testing.T) {
		got := NormalizeBreakdown("1. Research the subject (30 minutes)")
		assert.Equal(t, "1. Research the subject (30 minutes)", got)
	})

	t.Run("passes other lines through", func(t *testing.T) {
		text := "1. Research the subject\n(30 minutes)\n* Focus on primary sources"
		assert.Equal(t, text, NormalizeBreakdown(text))
	})
}

func TestParseBreakdown(t *testing.T) {
	t.Run("two line and inline forms are equivalent", func(t *testing.T) {
		twoLine := ParseBreakdown([]string{"1. Research books", "(30 minutes)"})
		inline := ParseBreakdown([]string{"1. Research books (30 minutes)"})

		require.Len(t, twoLine.Steps, 1)
		require.Len(t, inline.Steps, 1)
		assert.Equal(t, twoLine.Steps[0].Title, inline.Steps[0].Title)
		assert.Equal(t, twoLine.Steps[0].Body, inline.Steps[0].Body)
		assert.Equal(t, twoLine.MinMinutes, inline.MinMinutes)
	})

	t.Run("bullets attach to the step above", func(t *testing.T) {
		b := ParseBreakdown([]string{
			"1. Research popular history books",
			"(1 hour 30 minutes)",
			`* Consider "SPQR" by Mary Beard`,
			`• Consider "Sapiens" by Yuval Noah Harari`,
			"2. Choose one and order it (45 minutes)",
		})

		require.Len(t, b.Steps, 2)
		assert.Equal(t, []string{
			`Consider "SPQR" by Mary Beard`,
			`Consider "Sapiens" by Yuval Noah Harari`,
		}, b.Steps[0].Bullets)
		assert.Empty(t, b.Steps[1].Bullets)
		assert.Equal(t, 135, b.MinMinutes)
		assert.Equal(t, 135, b.MaxMinutes)
	})

	t.Run("skips blanks and marker lines", func(t *testing.T) {
		b := ParseBreakdown([]string{"BREAKDOWN:", "", "1. Pack a bag (15 minutes)", ""})
		require.Len(t, b.Steps, 1)
		assert.Equal(t, "1. Pack a bag", b.Steps[0].Title)
	})

	t.Run("stray line closes the open step", func(t *testing.T) {
		b := ParseBreakdown([]string{
			"1. Draft the outline",
			"(30 minutes)",
			"Here is some commentary from the model.",
			"* orphaned bullet",
		})
		require.Len(t, b.Steps, 1)
		assert.Empty(t, b.Steps[0].Bullets)
	})

	t.Run("strips duration qualifiers", func(t *testing.T) {
		b := ParseBreakdown([]string{"1. Read the first chapter (about 30 minutes)"})
		require.Len(t, b.Steps, 1)
		assert.Equal(t, "1. Read the first chapter", b.Steps[0].Title)
		assert.Equal(t, "(30 minutes)", b.Steps[0].Body)
	})

	t.Run("strips trailing colons from titles", func(t *testing.T) {
		b := ParseBreakdown([]string{"2. Outline the chapters: (1 hour)"})
		require.Len(t, b.Steps, 1)
		assert.Equal(t, "2. Outline the chapters", b.Steps[0].Title)
	})

	t.Run("duration matching is case-insensitive", func(t *testing.T) {
		b := ParseBreakdown([]string{"1. Stretch", "(45 MINUTES)"})
		require.Len(t, b.Steps, 1)
		assert.Equal(t, 45, b.MinMinutes)
	})

	t.Run("empty parens do not form a step duration", func(t *testing.T) {
		b := ParseBreakdown([]string{"1. Mystery step (tbd)"})
		assert.Empty(t, b.Steps)
	})

	t.Run("step ids carry their source line", func(t *testing.T) {
		b := ParseBreakdown([]string{"1. Research books", "(30 minutes)", "2. Order one (15 minutes)"})
		require.Len(t, b.Steps, 2)
		assert.True(t, strings.HasPrefix(b.Steps[0].ID, "next-"))
		assert.True(t, strings.HasPrefix(b.Steps[1].ID, "inline-"))
	})
}

func TestParseRenderRoundTrip(t *testing.T) {
	original := ParseBreakdown([]string{
		"1. Research popular history books",
		"(1 hour 30 minutes)",
		`* Consider "SPQR" by Mary Beard`,
		"2. Choose one and order it (45 minutes)",
	})
	reparsed := ParseBreakdown(RenderLines(original.Steps))

	require.Len(t, reparsed.Steps, len(original.Steps))
	for i := range original.Steps {
		assert.Equal(t, original.Steps[i].Title, reparsed.Steps[i].Title)
		assert.Equal(t, original.Steps[i].Body, reparsed.Steps[i].Body)
		assert.Equal(t, original.Steps[i].Bullets, reparsed.Steps[i].Bullets)
	}
	assert.Equal(t, original.MinMinutes, reparsed.MinMinutes)
}

func TestBreakdownParserParse(t *testing.T) {
	p := NewBreakdownParser()
	assert.Equal(t, "breakdown_string_parser", p.GetType())

	out, err := p.Parse("BREAKDOWN:\n1. Research books (2 hours 15 minutes)\n2. Order one (30 minutes)")
	require.NoError(t, err)

	b, ok := out.(*models.Breakdown)
	require.True(t, ok)
	require.Len(t, b.Steps, 2)
	assert.Equal(t, "1. Research books", b.Steps[0].Title)
	assert.Equal(t, "(2 hours 15 minutes)", b.Steps[0].Body)
	assert.Equal(t, 165, b.MinMinutes)
}

func TestTotalMinutes(t *testing.T) {
	steps := []models.Step{
		{Title: "1. A", Body: "(1 hour 30 minutes)"},
		{Title: "2. B", Body: "(45 minutes)"},
		{Title: "3. C", Body: "(tbd)"},
	}
	assert.Equal(t, 135, TotalMinutes(steps))
}

func TestFormatTotal(t *testing.T) {
	assert.Equal(t, "2 hrs 15 mins", FormatTotal(135))
	assert.Equal(t, "2 hrs", FormatTotal(120))
	assert.Equal(t, "45 mins", FormatTotal(45))
	assert.Equal(t, "0 mins", FormatTotal(0))
}
