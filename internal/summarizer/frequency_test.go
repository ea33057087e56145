package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_KeepsTopSentencesInOrder(t *testing.T) {
	text := "Solar panels convert sunlight. The weather was nice. " +
		"Solar panels need sunlight and solar inverters. Lunch was at noon."
	got := NewFrequencySummarizer().Summarize(text, 2)
	assert.Equal(t, "Solar panels convert sunlight. Solar panels need sunlight and solar inverters.", got)
}

func TestSummarize_NoPunctuation(t *testing.T) {
	s := NewFrequencySummarizer()
	assert.Equal(t, "just a few words", s.Summarize("  just a\n few   words ", 2))

	long := strings.Repeat("word ", 200)
	got := s.Summarize(long, 2)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, maxPreviewRunes+1, len([]rune(got)))
}

func TestSummarize_FewerSentencesThanRequested(t *testing.T) {
	assert.Equal(t, "Only one.", NewFrequencySummarizer().Summarize("Only one.", 5))
}
