package model

import (
	"time"
)

// Sender classifies who produced a message.
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderAgent    Sender = "agent"
	SenderAI       Sender = "ai"
	SenderSystem   Sender = "system"
)

// MessageType describes the payload shape of a message.
type MessageType string

const (
	TypeText           MessageType = "text"
	TypeImage          MessageType = "image"
	TypeAudio          MessageType = "audio"
	TypeVideo          MessageType = "video"
	TypeFile           MessageType = "file"
	TypeTextWithImages MessageType = "text_with_images"
)

// Media is one attachment carried by a message.
type Media struct {
	Type MessageType `json:"type"`
	URL  string      `json:"url"`
}

// MessageMetadata carries enrichment attached after ingestion.
type MessageMetadata struct {
	// ReplyTo quotes the platform message this one replies to.
	ReplyTo string `json:"reply_to,omitempty"`
	// MediaText is derived content: an audio transcript or image caption
	// produced by the media-processing jobs.
	MediaText string `json:"media_text,omitempty"`
	// MediaLanguage is the detected language of transcribed audio.
	MediaLanguage string `json:"media_language,omitempty"`
	// ProductImageSearch marks an image the vision pipeline classified as
	// a product lookup rather than free-form conversation.
	ProductImageSearch bool `json:"product_image_search,omitempty"`
	// Provider and Model record AI generation provenance on outbound messages.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Message is the append-only unit of communication. Messages are never
// mutated after creation except to set AIProcessedAt and enrich metadata.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	CompanyID      string `json:"company_id"`

	Sender  Sender      `json:"sender"`
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
	Media   []Media     `json:"media,omitempty"`

	// PlatformMessageID is the platform-native id, unique per conversation
	// when present. It is the duplicate-delivery guard.
	PlatformMessageID string `json:"platform_message_id,omitempty"`

	Metadata MessageMetadata `json:"metadata,omitempty"`

	AIProcessedAt *time.Time `json:"ai_processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// InboundMessage is the normalized descriptor handed to the core by the
// platform-parsing layer. The core never sees platform-native payloads.
type InboundMessage struct {
	ConnectionID      string          `json:"connection_id"`
	CustomerID        string          `json:"customer_id"`
	SenderIsCustomer  bool            `json:"sender_is_customer"`
	Text              string          `json:"text"`
	Type              MessageType     `json:"type"`
	Media             []Media         `json:"media,omitempty"`
	PlatformMessageID string          `json:"platform_message_id,omitempty"`
	Metadata          MessageMetadata `json:"metadata,omitempty"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
	Total    int       `json:"total"`
}
