// Package service provides business logic for the messaging platform.
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omnireply-ai/messaging-platform/internal/model"
	natsclient "github.com/omnireply-ai/messaging-platform/internal/nats"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
	"github.com/omnireply-ai/messaging-platform/pkg/metrics"
)

// ErrNotFound is returned when a requested entity does not exist or is not
// visible to the caller's company.
var ErrNotFound = fmt.Errorf("not found")

// ConversationService manages conversation lifecycle. Storage is in-memory;
// a database would replace the maps in production.
type ConversationService struct {
	streamManager *natsclient.StreamManager
	logger        *logger.Logger

	mu            sync.RWMutex
	conversations map[string]*model.Conversation
}

// NewConversationService creates a conversation service. The stream manager
// may be nil, which disables event publication.
func NewConversationService(streamManager *natsclient.StreamManager, log *logger.Logger) *ConversationService {
	return &ConversationService{
		streamManager: streamManager,
		logger:        log,
		conversations: make(map[string]*model.Conversation),
	}
}

// FindOrCreateActive returns the active conversation for the
// (company, customer, connection) tuple, creating one when none exists.
// New conversations start AI-handled.
func (s *ConversationService) FindOrCreateActive(ctx context.Context, companyID, customerID, connectionID string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conv := range s.conversations {
		if conv.CompanyID == companyID &&
			conv.CustomerID == customerID &&
			conv.ConnectionID == connectionID &&
			conv.Active() {
			return conv, nil
		}
	}

	now := time.Now()
	conv := &model.Conversation{
		ID:           uuid.Must(uuid.NewV7()).String(),
		CompanyID:    companyID,
		CustomerID:   customerID,
		ConnectionID: connectionID,
		Status:       model.ConversationOpen,
		IsAIHandling: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.conversations[conv.ID] = conv

	metrics.ConversationsTotal.WithLabelValues(companyID).Inc()
	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("company_id", companyID),
		zap.String("customer_id", customerID),
	)
	return conv, nil
}

// Conversation returns a conversation by id regardless of company. The
// coalescer uses it to re-read state at fire time.
func (s *ConversationService) Conversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	return conv, nil
}

// Get returns a conversation scoped to a company.
func (s *ConversationService) Get(ctx context.Context, companyID, conversationID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.CompanyID != companyID {
		return nil, ErrNotFound
	}
	return conv, nil
}

// List returns a company's conversations, most recently updated first.
func (s *ConversationService) List(ctx context.Context, companyID string, limit, offset int) ([]model.Conversation, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var convs []model.Conversation
	for _, conv := range s.conversations {
		if conv.CompanyID == companyID {
			convs = append(convs, *conv)
		}
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	total := len(convs)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if limit <= 0 || end > total {
		end = total
	}
	return convs[start:end], total, nil
}

// SetAIHandling flips AI handling on a conversation. Turning it off is the
// agent-takeover path; an event records the handoff.
func (s *ConversationService) SetAIHandling(ctx context.Context, companyID, conversationID string, handling bool, agentID string) (*model.Conversation, error) {
	s.mu.Lock()
	conv, ok := s.conversations[conversationID]
	if !ok || conv.CompanyID != companyID {
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	conv.IsAIHandling = handling
	if handling {
		conv.AssignedAgent = nil
	} else if agentID != "" {
		conv.AssignedAgent = &agentID
	}
	conv.UpdatedAt = time.Now()
	s.mu.Unlock()

	if !handling && s.streamManager != nil {
		if _, err := s.streamManager.PublishEvent(ctx, &model.ConversationEvent{
			ID:             uuid.Must(uuid.NewV7()).String(),
			ConversationID: conversationID,
			CompanyID:      companyID,
			Type:           model.EventTypeHandoff,
			Reason:         "agent takeover",
			CreatedAt:      time.Now(),
		}); err != nil {
			s.logger.Warn("handoff event publish failed",
				zap.String("conversation_id", conversationID), zap.Error(err))
		}
	}
	return conv, nil
}

// Close transitions a conversation to closed. Conversations are never
// hard-deleted.
func (s *ConversationService) Close(ctx context.Context, companyID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.CompanyID != companyID {
		return ErrNotFound
	}
	conv.Status = model.ConversationClosed
	conv.UpdatedAt = time.Now()
	return nil
}

// Touch records inbound activity on a conversation.
func (s *ConversationService) Touch(ctx context.Context, conversationID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[conversationID]; ok {
		conv.LastMessageAt = at
		conv.UpdatedAt = at
	}
}
