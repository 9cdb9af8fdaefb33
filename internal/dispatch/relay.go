package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/omnireply-ai/messaging-platform/internal/model"
)

// RelaySender sends outbound messages through the platform relay, the edge
// service that holds platform credentials and speaks each vendor API. One
// RelaySender instance serves one platform.
type RelaySender struct {
	platform model.Platform
	baseURL  string
	client   *http.Client
}

// NewRelaySender creates a relay-backed sender for a platform.
func NewRelaySender(platform model.Platform, baseURL string) *RelaySender {
	return &RelaySender{
		platform: platform,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Platform returns the platform this sender serves.
func (s *RelaySender) Platform() model.Platform {
	return s.platform
}

type relayPayload struct {
	ConnectionID string `json:"connection_id"`
	CustomerID   string `json:"customer_id"`
	Text         string `json:"text,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	Caption      string `json:"caption,omitempty"`
}

type relayResponse struct {
	PlatformMessageID string `json:"platform_message_id"`
}

// SendText sends a text message through the relay.
func (s *RelaySender) SendText(ctx context.Context, conn *model.PlatformConnection, customerID, text string) (string, error) {
	return s.post(ctx, relayPayload{
		ConnectionID: conn.ID,
		CustomerID:   customerID,
		Text:         text,
	})
}

// SendImage sends an image message through the relay, with an optional
// caption for platforms that attach text to the image.
func (s *RelaySender) SendImage(ctx context.Context, conn *model.PlatformConnection, customerID, imageURL, caption string) (string, error) {
	return s.post(ctx, relayPayload{
		ConnectionID: conn.ID,
		CustomerID:   customerID,
		ImageURL:     imageURL,
		Caption:      caption,
	})
}

func (s *RelaySender) post(ctx context.Context, payload relayPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal relay payload: %w", err)
	}

	url := fmt.Sprintf("%s/send/%s", s.baseURL, s.platform)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("relay send: status %d", resp.StatusCode)
	}

	var out relayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode relay response: %w", err)
	}
	return out.PlatformMessageID, nil
}
