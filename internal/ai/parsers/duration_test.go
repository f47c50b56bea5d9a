package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDuration(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		mode    DurationMode
		want    Duration
		matched bool
	}{
		{"hours and minutes", "(2 hours 15 minutes)", IntegerOnly, Duration{2, 15}, true},
		{"minutes only", "(45 minutes)", IntegerOnly, Duration{0, 45}, true},
		{"singular hour", "(1 hour)", IntegerOnly, Duration{1, 0}, true},
		{"uppercase units", "(45 MINUTES)", IntegerOnly, Duration{0, 45}, true},
		{"inline within title", "3. Write the draft (30 minutes)", IntegerOnly, Duration{0, 30}, true},
		{"trailing word", "(30 minutes approx)", IntegerOnly, Duration{0, 30}, true},
		{"zero duration still matches", "(0 hours 0 minutes)", IntegerOnly, Duration{0, 0}, true},
		{"empty parens", "()", IntegerOnly, Duration{}, false},
		{"no digits", "(tbd)", IntegerOnly, Duration{}, false},
		{"no parens", "45 minutes", IntegerOnly, Duration{}, false},
		{"fractional truncated", "(1.5 hours)", IntegerOnly, Duration{1, 0}, true},
		{"fractional folded", "(1.5 hours)", AllowFractionalHours, Duration{1, 30}, true},
		{"fractional with minutes", "(2.5 hours 10 minutes)", AllowFractionalHours, Duration{2, 40}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractDuration(tt.text, tt.mode)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindDuration(t *testing.T) {
	d, matched, ok := FindDuration("2. Outline the chapters (1 hour 20 minutes):", IntegerOnly)
	require.True(t, ok)
	assert.Equal(t, "(1 hour 20 minutes)", matched)
	assert.Equal(t, 80, d.TotalMinutes())

	_, _, ok = FindDuration("2. Outline the chapters ()", IntegerOnly)
	assert.False(t, ok)
}

func TestIsDurationOnly(t *testing.T) {
	assert.True(t, IsDurationOnly("(45 minutes)"))
	assert.True(t, IsDurationOnly("  (2 hours 15 minutes)  "))
	assert.True(t, IsDurationOnly("()"))
	assert.False(t, IsDurationOnly("Read a chapter (45 minutes)"))
	assert.False(t, IsDurationOnly("(1.5 hours)"))
	assert.False(t, IsDurationOnly("(45 minutes) extra"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "(2 hours 15 minutes)", FormatDuration(2, 15))
	assert.Equal(t, "(1 hour 1 minute)", FormatDuration(1, 1))
	assert.Equal(t, "(45 minutes)", FormatDuration(0, 45))
	assert.Equal(t, "(3 hours)", FormatDuration(3, 0))
	assert.Equal(t, "(0 hours 0 minutes)", FormatDuration(0, 0))
}

func TestFormatDurationRoundTrip(t *testing.T) {
	for _, pair := range []Duration{{0, 0}, {0, 45}, {1, 0}, {1, 1}, {2, 15}} {
		got, ok := ExtractDuration(FormatDuration(pair.Hours, pair.Minutes), IntegerOnly)
		require.True(t, ok)
		assert.Equal(t, pair, got)
	}
}
