package ai

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractProductImages(t *testing.T) {
	text := "Here are two options.\n\n" +
		"[PRODUCT_IMAGE: https://cdn.example.com/a.jpg]\n" +
		"The first is waterproof.\n" +
		"[product_image: https://cdn.example.com/b.jpg]\n" +
		"The second is cheaper."

	cleaned, images := ExtractProductImages(text)
	assert.Equal(t, []string{
		"https://cdn.example.com/a.jpg",
		"https://cdn.example.com/b.jpg",
	}, images, "tag matching is case-insensitive")
	assert.NotContains(t, cleaned, "PRODUCT_IMAGE")
	assert.Contains(t, cleaned, "The first is waterproof.")
	assert.Contains(t, cleaned, "The second is cheaper.")
}

func TestExtractProductImagesKeepsDuplicates(t *testing.T) {
	text := "[PRODUCT_IMAGE: https://x.co/a.jpg] and again [PRODUCT_IMAGE: https://x.co/a.jpg]"

	_, images := ExtractProductImages(text)
	assert.Len(t, images, 2)
}

func TestExtractProductImagesCapsAtTen(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&sb, "[PRODUCT_IMAGE: https://x.co/%d.jpg]\n", i)
	}

	_, images := ExtractProductImages(sb.String())
	assert.Len(t, images, 10)
	assert.Equal(t, "https://x.co/0.jpg", images[0])
	assert.Equal(t, "https://x.co/9.jpg", images[9])
}

func TestExtractProductImagesRejectsBadURLs(t *testing.T) {
	text := "[PRODUCT_IMAGE: not-a-url] [PRODUCT_IMAGE: ftp://x.co/a.jpg] done"

	cleaned, images := ExtractProductImages(text)
	assert.Empty(t, images, "invalid urls are stripped but not collected")
	assert.Equal(t, "done", cleaned)
}

func TestExtractProductImagesCollapsesBlankRuns(t *testing.T) {
	text := "Top.\n[PRODUCT_IMAGE: https://x.co/a.jpg]\n\n\n[PRODUCT_IMAGE: https://x.co/b.jpg]\n\n\nBottom."

	cleaned, images := ExtractProductImages(text)
	assert.Len(t, images, 2)
	assert.NotContains(t, cleaned, "\n\n\n")
	assert.Equal(t, "Top.\n\nBottom.", cleaned)
}

func TestExtractProductImagesNoTags(t *testing.T) {
	cleaned, images := ExtractProductImages("Plain answer.")
	assert.Equal(t, "Plain answer.", cleaned)
	assert.Empty(t, images)
}
