package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omnireply-ai/messaging-platform/internal/model"
	natsclient "github.com/omnireply-ai/messaging-platform/internal/nats"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
	"github.com/omnireply-ai/messaging-platform/pkg/metrics"
)

// MessageService stores the append-only message log per conversation and
// tracks which customer messages the AI has answered.
type MessageService struct {
	streamManager *natsclient.StreamManager
	conversations *ConversationService
	logger        *logger.Logger

	mu       sync.RWMutex
	messages map[string][]*model.Message
}

// NewMessageService creates a message service. The stream manager may be
// nil, which disables event publication.
func NewMessageService(streamManager *natsclient.StreamManager, conversations *ConversationService, log *logger.Logger) *MessageService {
	return &MessageService{
		streamManager: streamManager,
		conversations: conversations,
		logger:        log,
		messages:      make(map[string][]*model.Message),
	}
}

// Append stores a message in arrival order. A message whose
// PlatformMessageID already exists in the conversation is a duplicate
// delivery: the stored original is returned with created false.
func (s *MessageService) Append(ctx context.Context, msg *model.Message) (*model.Message, bool, error) {
	s.mu.Lock()
	if msg.PlatformMessageID != "" {
		for _, existing := range s.messages[msg.ConversationID] {
			if existing.PlatformMessageID == msg.PlatformMessageID {
				s.mu.Unlock()
				return existing, false, nil
			}
		}
	}

	stored := *msg
	if stored.ID == "" {
		stored.ID = uuid.Must(uuid.NewV7()).String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.messages[stored.ConversationID] = append(s.messages[stored.ConversationID], &stored)
	s.mu.Unlock()

	s.conversations.Touch(ctx, stored.ConversationID, stored.CreatedAt)
	metrics.MessagesTotal.WithLabelValues(stored.CompanyID, string(stored.Sender)).Inc()

	if s.streamManager != nil {
		if _, err := s.streamManager.PublishMessage(ctx, &stored); err != nil {
			s.logger.Warn("message event publish failed",
				zap.String("message_id", stored.ID), zap.Error(err))
		}
	}
	return &stored, true, nil
}

// AppendOutbound stores an AI or agent message.
func (s *MessageService) AppendOutbound(ctx context.Context, msg *model.Message) (*model.Message, error) {
	stored, _, err := s.Append(ctx, msg)
	return stored, err
}

// List returns a conversation's messages in creation order with offset
// pagination.
func (s *MessageService) List(ctx context.Context, companyID, conversationID string, limit, offset int) (*model.ListMessagesResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []model.Message
	for _, m := range s.messages[conversationID] {
		if m.CompanyID == companyID {
			all = append(all, *m)
		}
	}

	total := len(all)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if limit <= 0 || end > total {
		end = total
	}

	return &model.ListMessagesResponse{
		Messages: all[start:end],
		HasMore:  end < total,
		Total:    total,
	}, nil
}

// RecentMessages returns the newest messages in creation order, bounded.
func (s *MessageService) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.messages[conversationID]
	start := 0
	if limit > 0 && len(stored) > limit {
		start = len(stored) - limit
	}

	out := make([]model.Message, 0, len(stored)-start)
	for _, m := range stored[start:] {
		out = append(out, *m)
	}
	return out, nil
}

// UnprocessedCustomerMessages returns customer messages the AI has not yet
// answered, in creation order.
func (s *MessageService) UnprocessedCustomerMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Message
	for _, m := range s.messages[conversationID] {
		if m.Sender == model.SenderCustomer && m.AIProcessedAt == nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

// MarkAIProcessed stamps the given messages as answered. Unknown ids are
// ignored so a partial batch never fails the whole call.
func (s *MessageService) MarkAIProcessed(ctx context.Context, messageIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = true
	}

	now := time.Now()
	for _, stored := range s.messages {
		for _, m := range stored {
			if wanted[m.ID] && m.AIProcessedAt == nil {
				at := now
				m.AIProcessedAt = &at
			}
		}
	}
	return nil
}
