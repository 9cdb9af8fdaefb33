// Package model defines data structures for the messaging platform.
package model

import (
	"time"
)

// ConversationStatus represents the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationOpen       ConversationStatus = "open"
	ConversationInProgress ConversationStatus = "in_progress"
	ConversationClosed     ConversationStatus = "closed"
	ConversationEscalated  ConversationStatus = "escalated"
)

// Platform identifies the external chat platform a connection belongs to.
type Platform string

const (
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformFacebook  Platform = "facebook"
	PlatformTelegram  Platform = "telegram"
	PlatformLine      Platform = "line"
	PlatformWebWidget Platform = "web_widget"
)

// Conversation represents a customer thread on one platform connection.
// Conversations are never hard-deleted; closing is a status transition.
type Conversation struct {
	ID            string             `json:"id"`
	CompanyID     string             `json:"company_id"`
	CustomerID    string             `json:"customer_id"`
	ConnectionID  string             `json:"connection_id"`
	Status        ConversationStatus `json:"status"`
	Priority      int                `json:"priority"`
	IsAIHandling  bool               `json:"is_ai_handling"`
	AssignedAgent *string            `json:"assigned_agent,omitempty"`
	LastMessageAt time.Time          `json:"last_message_at"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Metadata      map[string]string  `json:"metadata,omitempty"`
}

// Active reports whether the conversation still accepts inbound traffic.
func (c *Conversation) Active() bool {
	return c.Status == ConversationOpen || c.Status == ConversationInProgress
}

// PlatformConnection ties a company to a channel account on one platform.
type PlatformConnection struct {
	ID        string   `json:"id"`
	CompanyID string   `json:"company_id"`
	Platform  Platform `json:"platform"`
	Active    bool     `json:"active"`
}

// Customer is the minimal identity the AI pipeline needs for prompt framing.
type Customer struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	Locale    string `json:"locale,omitempty"`
}
