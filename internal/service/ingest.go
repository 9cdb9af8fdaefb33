package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/omnireply-ai/messaging-platform/internal/model"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
)

// responseScheduler registers debounced AI turns. The coalescer implements it.
type responseScheduler interface {
	ScheduleResponse(conversationID string)
}

// IngestService runs the inbound message flow: resolve the connection,
// find or create the conversation, persist idempotently, schedule the AI.
type IngestService struct {
	connections   *ConnectionStore
	conversations *ConversationService
	messages      *MessageService
	scheduler     responseScheduler
	logger        *logger.Logger
}

// NewIngestService creates an ingest service. The scheduler may be nil,
// which stores messages without AI scheduling.
func NewIngestService(
	connections *ConnectionStore,
	conversations *ConversationService,
	messages *MessageService,
	scheduler responseScheduler,
	log *logger.Logger,
) *IngestService {
	return &IngestService{
		connections:   connections,
		conversations: conversations,
		messages:      messages,
		scheduler:     scheduler,
		logger:        log,
	}
}

// Ingest processes one normalized inbound message for the authenticated
// company and returns the stored message. A connection owned by another
// company reads as not found so tokens cannot probe foreign tenants.
// Duplicate platform deliveries return the original without scheduling a
// second AI turn.
func (s *IngestService) Ingest(ctx context.Context, companyID string, in *model.InboundMessage) (*model.Message, error) {
	conn, err := s.connections.Connection(ctx, in.ConnectionID)
	if err != nil {
		return nil, fmt.Errorf("resolve connection: %w", err)
	}
	if conn == nil || conn.CompanyID != companyID {
		return nil, fmt.Errorf("unknown connection %s: %w", in.ConnectionID, ErrNotFound)
	}
	if !conn.Active {
		return nil, fmt.Errorf("connection %s is inactive", in.ConnectionID)
	}

	conv, err := s.conversations.FindOrCreateActive(ctx, conn.CompanyID, in.CustomerID, conn.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	sender := model.SenderCustomer
	if !in.SenderIsCustomer {
		sender = model.SenderAgent
	}
	msgType := in.Type
	if msgType == "" {
		msgType = model.TypeText
	}

	stored, created, err := s.messages.Append(ctx, &model.Message{
		ConversationID:    conv.ID,
		CompanyID:         conv.CompanyID,
		Sender:            sender,
		Type:              msgType,
		Content:           in.Text,
		Media:             in.Media,
		PlatformMessageID: in.PlatformMessageID,
		Metadata:          in.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	if !created {
		s.logger.Debug("duplicate platform delivery ignored",
			zap.String("conversation_id", conv.ID),
			zap.String("platform_message_id", in.PlatformMessageID),
		)
		return stored, nil
	}

	if sender == model.SenderCustomer && conv.IsAIHandling && s.scheduler != nil {
		s.scheduler.ScheduleResponse(conv.ID)
	}
	return stored, nil
}
