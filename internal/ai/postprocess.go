package ai

import (
	"net/url"
	"regexp"
	"strings"
)

// maxExtractedImages caps how many image tags are honored per response,
// independent of the smaller number the prompt instructs the model to use.
const maxExtractedImages = 10

var (
	productImagePattern = regexp.MustCompile(`(?i)\[PRODUCT_IMAGE:\s*([^\]\s]+)\s*\]`)
	blankRunPattern     = regexp.MustCompile(`\n{3,}`)
)

// ExtractProductImages pulls [PRODUCT_IMAGE: url] tags out of a model
// response. It returns the cleaned text and the image urls in order of
// appearance, duplicates preserved. Tags with unparseable or non-http urls
// are stripped but not collected.
func ExtractProductImages(text string) (string, []string) {
	var images []string
	cleaned := productImagePattern.ReplaceAllStringFunc(text, func(tag string) string {
		m := productImagePattern.FindStringSubmatch(tag)
		if len(images) < maxExtractedImages && validImageURL(m[1]) {
			images = append(images, m[1])
		}
		return ""
	})

	cleaned = blankRunPattern.ReplaceAllString(cleaned, "\n\n")
	cleaned = strings.TrimSpace(cleaned)
	return cleaned, images
}

func validImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
