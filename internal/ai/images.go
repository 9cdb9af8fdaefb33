package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/omnireply-ai/messaging-platform/internal/llm"
)

// ImageFetcher turns a media URL into base64 image data for vision calls.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (llm.ImageData, error)
}

// maxImageBytes bounds a fetched image; vision providers reject larger
// payloads anyway.
const maxImageBytes = 10 << 20

// HTTPImageFetcher fetches images over HTTP with a bounded timeout.
type HTTPImageFetcher struct {
	client *http.Client
}

// NewHTTPImageFetcher creates a fetcher with a 15s per-image timeout.
func NewHTTPImageFetcher() *HTTPImageFetcher {
	return &HTTPImageFetcher{client: &http.Client{Timeout: 15 * time.Second}}
}

// Fetch downloads the image and returns it base64-encoded with its
// content type.
func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) (llm.ImageData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return llm.ImageData{}, fmt.Errorf("build image request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return llm.ImageData{}, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return llm.ImageData{}, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return llm.ImageData{}, fmt.Errorf("read image body: %w", err)
	}
	if len(body) > maxImageBytes {
		return llm.ImageData{}, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	mediaType := resp.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = http.DetectContentType(body)
	}

	return llm.ImageData{
		MediaType: mediaType,
		Base64:    base64.StdEncoding.EncodeToString(body),
	}, nil
}
