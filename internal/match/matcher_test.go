package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DmitryBarskov/klippings/internal/normalizer"
)

func normalize(t *testing.T, s string) *normalizer.Normalized {
	t.Helper()
	return normalizer.New().Normalize(s)
}

func TestMatcher_ExactMatch(t *testing.T) {
	book := normalize(t, "It was the best of times, it was the worst of times.")
	m := NewMatcher(DefaultThreshold)

	res := m.Match("the best of times", LocationHint{}, book)

	require.Equal(t, Exact, res.Confidence)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, "the best of times", book.Text[res.Offset:res.Offset+res.Length])
}

func TestMatcher_ExactMatchSurvivesNormalizationDifferences(t *testing.T) {
	nz := normalizer.New()
	// Book text wraps lines and uses smart quotes; the clip does not.
	book := nz.Normalize("He said “it was a re-\nmarkable evening” and left.")
	clip := nz.Fold(`it was a remarkable evening`)

	m := NewMatcher(DefaultThreshold)
	res := m.Match(clip, LocationHint{}, book)

	require.Equal(t, Exact, res.Confidence)
	assert.Equal(t, clip, book.Text[res.Offset:res.Offset+res.Length])
}

func TestMatcher_FirstOccurrenceWithoutHint(t *testing.T) {
	book := normalize(t, "call me ishmael. some pages later: call me ishmael.")
	m := NewMatcher(DefaultThreshold)

	res := m.Match("call me ishmael", LocationHint{}, book)

	require.Equal(t, Exact, res.Confidence)
	assert.Equal(t, 0, res.Offset)
}

func TestMatcher_LocationHintPicksNearerOccurrence(t *testing.T) {
	// Two occurrences of the phrase, the second far into the text.
	phrase := "a short quote"
	filler := strings.Repeat("padding text. ", 2000) // ~28000 bytes
	book := normalize(t, phrase+". "+filler+phrase+". the end.")
	m := NewMatcher(DefaultThreshold)

	// Location 200 estimates to ~25600 bytes in, near the second occurrence.
	res := m.Match(phrase, LocationHint{Start: 200, End: 201}, book)

	require.Equal(t, Exact, res.Confidence)
	assert.Greater(t, res.Offset, 1000)
}

func TestMatcher_HintInterpolatesAgainstLargestLocation(t *testing.T) {
	// A location-dense book: the flat per-location byte estimate
	// overshoots, but knowing the book's largest location pulls the
	// estimate back to scale.
	phrase := "a short quote"
	filler := strings.Repeat("padding text. ", 2000) // ~28000 bytes
	book := normalize(t, phrase+". "+filler+phrase+". the end.")
	m := NewMatcher(DefaultThreshold)

	// Location 150 of 10000 maps near the start of the text; the flat
	// estimate (150*128 bytes) would land near the second occurrence.
	res := m.Match(phrase, LocationHint{Start: 150, End: 151, MaxLocation: 10000}, book)

	require.Equal(t, Exact, res.Confidence)
	assert.Less(t, res.Offset, 1000)
}

func TestMatcher_FuzzyMatchWithNoise(t *testing.T) {
	book := normalize(t, "long before that evening, the quick brown fox jumped over the lazy dog near the river bank.")
	m := NewMatcher(DefaultThreshold)

	// OCR-style noise: one word slightly different.
	res := m.Match("the quick brown fox jumped over the lazy hog", LocationHint{}, book)

	require.Equal(t, Fuzzy, res.Confidence)
	assert.GreaterOrEqual(t, res.Score, DefaultThreshold)
	assert.Contains(t, book.Text[res.Offset:res.Offset+res.Length], "quick brown fox")
}

func TestMatcher_NotFoundBelowThreshold(t *testing.T) {
	book := normalize(t, "completely unrelated text about gardening and soil acidity.")
	m := NewMatcher(DefaultThreshold)

	res := m.Match("spaceships thundered across the violet sky", LocationHint{}, book)

	assert.Equal(t, NotFound, res.Confidence)
}

func TestMatcher_ClipLongerThanBook(t *testing.T) {
	book := normalize(t, "tiny")
	m := NewMatcher(DefaultThreshold)

	res := m.Match("a clip that is much longer than the whole book text", LocationHint{}, book)

	assert.Equal(t, NotFound, res.Confidence)
}

func TestMatcher_EmptyInputs(t *testing.T) {
	m := NewMatcher(DefaultThreshold)

	assert.Equal(t, NotFound, m.Match("", LocationHint{}, normalize(t, "text")).Confidence)
	assert.Equal(t, NotFound, m.Match("text", LocationHint{}, normalize(t, "")).Confidence)
	assert.Equal(t, NotFound, m.Match("text", LocationHint{}, nil).Confidence)
}

func TestNewMatcher_InvalidThresholdFallsBack(t *testing.T) {
	assert.Equal(t, DefaultThreshold, NewMatcher(0).threshold)
	assert.Equal(t, DefaultThreshold, NewMatcher(1.5).threshold)
	assert.Equal(t, 0.9, NewMatcher(0.9).threshold)
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}
