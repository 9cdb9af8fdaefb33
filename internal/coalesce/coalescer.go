// Package coalesce debounces rapid customer messages so one AI turn answers
// a burst, and guarantees at most one in-flight response per conversation
// across nodes.
package coalesce

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omnireply-ai/messaging-platform/internal/ai"
	"github.com/omnireply-ai/messaging-platform/internal/kv"
	"github.com/omnireply-ai/messaging-platform/internal/model"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
	"github.com/omnireply-ai/messaging-platform/pkg/metrics"
)

// Outcome is the terminal state of one scheduled response.
type Outcome string

const (
	// OutcomeSuperseded means a newer message replaced this turn before it
	// fired; the newer turn answers the whole burst.
	OutcomeSuperseded Outcome = "superseded"
	// OutcomeSkipped means nothing was left to answer when the turn fired.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeLockedOut means another node holds the conversation lock.
	OutcomeLockedOut Outcome = "locked_out"
	// OutcomeSent means the response was generated and dispatched.
	OutcomeSent Outcome = "sent"
	// OutcomeFailed means generation or dispatch failed.
	OutcomeFailed Outcome = "failed"
)

const (
	// DefaultDebounce is how long a turn waits for follow-up messages.
	DefaultDebounce = 8 * time.Second
	// lockTTL bounds how long a crashed node can block a conversation.
	lockTTL = 30 * time.Second

	markerPrefix = "ai_pending:"
	lockPrefix   = "ai_lock:"
)

// MessageSource is the message-store surface the coalescer reads and marks.
type MessageSource interface {
	UnprocessedCustomerMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	MarkAIProcessed(ctx context.Context, messageIDs []string) error
}

// ConversationSource re-reads conversation state at fire time, since an
// agent may have taken over during the debounce window.
type ConversationSource interface {
	Conversation(ctx context.Context, conversationID string) (*model.Conversation, error)
}

// Responder generates the AI answer for a combined turn.
type Responder interface {
	Respond(ctx context.Context, req ai.RespondRequest) (*ai.Answer, error)
}

// Deliverer sends a finished answer to the customer.
type Deliverer interface {
	Deliver(ctx context.Context, conv *model.Conversation, answer *ai.Answer) error
}

// Coalescer schedules debounced, deduplicated AI responses. The marker key
// implements supersession, the lock key cross-node mutual exclusion.
type Coalescer struct {
	store    kv.Store
	messages MessageSource
	convs    ConversationSource
	respond  Responder
	deliver  Deliverer
	logger   *logger.Logger

	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a coalescer. Zero delay falls back to DefaultDebounce.
func New(store kv.Store, messages MessageSource, convs ConversationSource, respond Responder, deliver Deliverer, delay time.Duration, log *logger.Logger) *Coalescer {
	if delay < 0 {
		delay = DefaultDebounce
	}
	return &Coalescer{
		store:    store,
		messages: messages,
		convs:    convs,
		respond:  respond,
		deliver:  deliver,
		logger:   log,
		delay:    delay,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetSleep overrides the debounce wait for tests.
func (c *Coalescer) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	c.sleep = sleep
}

// ScheduleResponse is the fire-and-forget entry point used by ingest. The
// turn runs detached from the request context so a fast webhook response
// does not cancel it.
func (c *Coalescer) ScheduleResponse(conversationID string) {
	token, err := c.Schedule(context.Background(), conversationID)
	if err != nil {
		c.logger.Error("response schedule failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return
	}
	go c.Run(context.Background(), conversationID, token)
}

// Schedule registers intent to answer the conversation and returns the
// supersession token. Every newer message overwrites the marker, so only
// the latest scheduled turn survives the debounce.
func (c *Coalescer) Schedule(ctx context.Context, conversationID string) (string, error) {
	token := uuid.Must(uuid.NewV7()).String()
	if err := c.store.Set(ctx, markerPrefix+conversationID, token, c.delay+lockTTL); err != nil {
		return "", err
	}
	return token, nil
}

// Run waits out the debounce window then fires the turn. It is the
// goroutine body for one scheduled response.
func (c *Coalescer) Run(ctx context.Context, conversationID, token string) Outcome {
	if err := c.sleep(ctx, c.delay); err != nil {
		metrics.RecordCoalescerOutcome(string(OutcomeSkipped))
		return OutcomeSkipped
	}
	outcome := c.fire(ctx, conversationID, token)
	metrics.RecordCoalescerOutcome(string(outcome))
	return outcome
}

func (c *Coalescer) fire(ctx context.Context, conversationID, token string) Outcome {
	markerKey := markerPrefix + conversationID

	superseded, failed := c.markerLost(ctx, markerKey, token, conversationID)
	if failed {
		return OutcomeFailed
	}
	if superseded {
		return OutcomeSuperseded
	}

	lockKey := lockPrefix + conversationID
	acquired, err := c.store.SetNX(ctx, lockKey, token, lockTTL)
	if err != nil {
		c.logger.Error("conversation lock acquire failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return OutcomeFailed
	}
	if !acquired {
		return OutcomeLockedOut
	}
	defer func() {
		if _, err := c.store.CompareAndDelete(ctx, lockKey, token); err != nil {
			c.logger.Warn("conversation lock release failed",
				zap.String("conversation_id", conversationID), zap.Error(err))
		}
	}()

	// Re-check after taking the lock: a message that arrived between the
	// marker read and the lock acquire must supersede this turn.
	superseded, failed = c.markerLost(ctx, markerKey, token, conversationID)
	if failed {
		return OutcomeFailed
	}
	if superseded {
		return OutcomeSuperseded
	}

	conv, err := c.convs.Conversation(ctx, conversationID)
	if err != nil || conv == nil {
		c.logger.Warn("conversation load failed at fire time",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return OutcomeFailed
	}
	if !conv.Active() || !conv.IsAIHandling {
		c.clearMarker(ctx, markerKey, token)
		return OutcomeSkipped
	}

	pending, err := c.messages.UnprocessedCustomerMessages(ctx, conversationID)
	if err != nil {
		c.logger.Error("pending message load failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return OutcomeFailed
	}
	if len(pending) == 0 {
		c.clearMarker(ctx, markerKey, token)
		return OutcomeSkipped
	}

	combined := combine(pending)
	answer, err := c.respond.Respond(ctx, ai.RespondRequest{
		Conversation: conv,
		Message:      combined,
	})
	if err != nil {
		if ai.IsKind(err, ai.KindAutoRespondDisabled) {
			c.clearMarker(ctx, markerKey, token)
			return OutcomeSkipped
		}
		c.logger.Error("response generation failed",
			zap.String("conversation_id", conversationID),
			zap.String("company_id", conv.CompanyID),
			zap.Error(err))
		return OutcomeFailed
	}

	if err := c.deliver.Deliver(ctx, conv, answer); err != nil {
		c.logger.Error("response delivery failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return OutcomeFailed
	}

	ids := make([]string, 0, len(pending))
	for _, m := range pending {
		ids = append(ids, m.ID)
	}
	if err := c.messages.MarkAIProcessed(ctx, ids); err != nil {
		c.logger.Warn("mark processed failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}

	c.clearMarker(ctx, markerKey, token)
	return OutcomeSent
}

// markerLost checks whether this turn still owns the supersession marker.
// A missing or rewritten marker means a newer turn took over; a store
// failure is reported separately so it is not mistaken for supersession.
func (c *Coalescer) markerLost(ctx context.Context, markerKey, token, conversationID string) (superseded, failed bool) {
	current, err := c.store.Get(ctx, markerKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return true, false
		}
		c.logger.Error("marker read failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return false, true
	}
	return current != token, false
}

func (c *Coalescer) clearMarker(ctx context.Context, markerKey, token string) {
	if _, err := c.store.CompareAndDelete(ctx, markerKey, token); err != nil {
		c.logger.Warn("marker clear failed", zap.String("key", markerKey), zap.Error(err))
	}
}

// combine folds a burst of pending messages into one turn. Text joins in
// arrival order with reply-quote references preserved; media and media
// transcripts accumulate.
func combine(pending []model.Message) model.Message {
	last := pending[len(pending)-1]
	if len(pending) == 1 && last.Metadata.ReplyTo == "" {
		return last
	}

	var texts, transcripts []string
	var media []model.Media
	for _, m := range pending {
		text := m.Content
		if m.Metadata.ReplyTo != "" {
			quote := "[replying to message " + m.Metadata.ReplyTo + "]"
			if text == "" {
				text = quote
			} else {
				text = quote + " " + text
			}
		}
		if text != "" {
			texts = append(texts, text)
		}
		if m.Metadata.MediaText != "" {
			transcripts = append(transcripts, m.Metadata.MediaText)
		}
		media = append(media, m.Media...)
	}

	combined := last
	combined.Content = strings.Join(texts, "\n")
	combined.Media = media
	combined.Metadata.MediaText = strings.Join(transcripts, "\n")
	return combined
}
