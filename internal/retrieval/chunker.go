package retrieval

import (
	"strings"
	"unicode"
)

// DefaultChunkBudget is the character budget a chunk accumulates up to.
const DefaultChunkBudget = 1500

// Chunker splits knowledge text into embeddable chunks. Splitting is
// deterministic: re-indexing identical content yields identical boundaries.
type Chunker struct {
	Budget int
}

// NewChunker creates a chunker with the given character budget.
func NewChunker(budget int) *Chunker {
	if budget <= 0 {
		budget = DefaultChunkBudget
	}
	return &Chunker{Budget: budget}
}

// Split breaks text at paragraph boundaries, accumulating paragraphs into
// chunks up to the budget. A single paragraph over the budget is further
// split at sentence boundaries.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var pieces []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= c.Budget {
			pieces = append(pieces, para)
			continue
		}
		pieces = append(pieces, splitSentences(para)...)
	}

	var chunks []string
	var current strings.Builder
	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+len(piece)+1 > c.Budget {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(piece)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitSentences splits on terminal punctuation followed by whitespace.
// CJK full stops are handled so multilingual knowledge bases chunk sanely.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		terminal := r == '.' || r == '!' || r == '?' || r == '。' || r == '！' || r == '？'
		if !terminal {
			continue
		}
		// Only break when the next rune starts a new sentence.
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) && runes[i+1] != '\n' {
			continue
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
