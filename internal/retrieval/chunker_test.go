package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_EmptyInput(t *testing.T) {
	c := NewChunker(100)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\n  "))
}

func TestChunker_AccumulatesParagraphsUpToBudget(t *testing.T) {
	c := NewChunker(50)
	text := "Paragraph one here.\n\nParagraph two here.\n\nParagraph three is the last one."

	chunks := c.Split(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Paragraph one here.\nParagraph two here.", chunks[0])
	assert.Equal(t, "Paragraph three is the last one.", chunks[1])
}

func TestChunker_OversizedParagraphSplitsOnSentences(t *testing.T) {
	c := NewChunker(40)
	long := "This is sentence number one. This is sentence number two. Short tail."

	chunks := c.Split(long)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 60, "chunk %q grossly over budget", chunk)
	}
	assert.Contains(t, strings.Join(chunks, " "), "sentence number one.")
	assert.Contains(t, strings.Join(chunks, " "), "Short tail.")
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker(80)
	text := "Alpha beta gamma. Delta epsilon zeta.\n\nEta theta iota kappa lambda mu nu xi omicron pi rho sigma tau."

	first := c.Split(text)
	second := c.Split(text)
	assert.Equal(t, first, second)
}

func TestSplitSentences_DecimalNotBroken(t *testing.T) {
	got := splitSentences("The price is 3.50 per unit. Shipping is free.")
	require.Len(t, got, 2)
	assert.Equal(t, "The price is 3.50 per unit.", got[0])
}
