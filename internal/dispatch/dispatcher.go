// Package dispatch persists finished AI answers and sends them to the
// customer's platform in the order each platform renders best.
package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/omnireply-ai/messaging-platform/internal/ai"
	"github.com/omnireply-ai/messaging-platform/internal/model"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
	"github.com/omnireply-ai/messaging-platform/pkg/metrics"
)

// PlatformSender is one platform's outbound transport. The image caption is
// optional; transports that cannot attach one ignore it.
type PlatformSender interface {
	Platform() model.Platform
	SendText(ctx context.Context, conn *model.PlatformConnection, customerID, text string) (string, error)
	SendImage(ctx context.Context, conn *model.PlatformConnection, customerID, imageURL, caption string) (string, error)
}

// OutboundStore persists outbound messages. Persistence happens before any
// send attempt so the thread history is complete even when transport fails.
type OutboundStore interface {
	AppendOutbound(ctx context.Context, msg *model.Message) (*model.Message, error)
}

// ConnectionSource resolves the platform connection a conversation rides on.
type ConnectionSource interface {
	Connection(ctx context.Context, connectionID string) (*model.PlatformConnection, error)
}

// imagesFirst is the per-platform send ordering. Chat apps render an image
// followed by its caption text most naturally; Facebook and the web widget
// read better with text leading.
var imagesFirst = map[model.Platform]bool{
	model.PlatformWhatsApp:  true,
	model.PlatformTelegram:  true,
	model.PlatformLine:      true,
	model.PlatformFacebook:  false,
	model.PlatformWebWidget: false,
}

// Dispatcher fans a finished answer out to the right platform transport.
type Dispatcher struct {
	senders     map[model.Platform]PlatformSender
	store       OutboundStore
	connections ConnectionSource
	logger      *logger.Logger
}

// New creates a dispatcher over the given transports.
func New(store OutboundStore, connections ConnectionSource, log *logger.Logger, senders ...PlatformSender) *Dispatcher {
	m := make(map[model.Platform]PlatformSender, len(senders))
	for _, s := range senders {
		if s != nil {
			m[s.Platform()] = s
		}
	}
	return &Dispatcher{senders: m, store: store, connections: connections, logger: log}
}

// Deliver persists the answer as an AI message, then sends text and product
// images in platform order. Image failures are logged and skipped; a text
// failure fails the delivery.
func (d *Dispatcher) Deliver(ctx context.Context, conv *model.Conversation, answer *ai.Answer) error {
	msgType := model.TypeText
	if len(answer.ImagesToSend) > 0 {
		msgType = model.TypeTextWithImages
	}
	media := make([]model.Media, 0, len(answer.ImagesToSend))
	for _, url := range answer.ImagesToSend {
		media = append(media, model.Media{Type: model.TypeImage, URL: url})
	}

	stored, err := d.store.AppendOutbound(ctx, &model.Message{
		ConversationID: conv.ID,
		CompanyID:      conv.CompanyID,
		Sender:         model.SenderAI,
		Type:           msgType,
		Content:        answer.Text,
		Media:          media,
		Metadata: model.MessageMetadata{
			Provider: answer.Provider,
			Model:    answer.Model,
		},
	})
	if err != nil {
		return ai.WrapError(ai.KindTransportError, "persist outbound message", err)
	}

	conn, err := d.connections.Connection(ctx, conv.ConnectionID)
	if err != nil {
		return ai.WrapError(ai.KindTransportError, "load connection", err)
	}
	if conn == nil || !conn.Active {
		d.logger.Warn("connection inactive, answer persisted without send",
			zap.String("conversation_id", conv.ID),
			zap.String("connection_id", conv.ConnectionID),
		)
		return nil
	}

	sender, ok := d.senders[conn.Platform]
	if !ok {
		return ai.NewError(ai.KindTransportError, "no sender for platform "+string(conn.Platform))
	}

	if imagesFirst[conn.Platform] {
		d.sendImages(ctx, sender, conn, conv.CustomerID, answer.ImagesToSend)
		if err := d.sendText(ctx, sender, conn, conv, stored, answer.Text); err != nil {
			return err
		}
	} else {
		if err := d.sendText(ctx, sender, conn, conv, stored, answer.Text); err != nil {
			return err
		}
		d.sendImages(ctx, sender, conn, conv.CustomerID, answer.ImagesToSend)
	}
	return nil
}

func (d *Dispatcher) sendText(ctx context.Context, sender PlatformSender, conn *model.PlatformConnection, conv *model.Conversation, stored *model.Message, text string) error {
	if text == "" {
		return nil
	}
	platformID, err := sender.SendText(ctx, conn, conv.CustomerID, text)
	if err != nil {
		metrics.RecordDispatchSend(string(conn.Platform), "text", "error")
		return ai.WrapError(ai.KindTransportError, "send text", err)
	}
	metrics.RecordDispatchSend(string(conn.Platform), "text", "ok")
	stored.PlatformMessageID = platformID
	return nil
}

func (d *Dispatcher) sendImages(ctx context.Context, sender PlatformSender, conn *model.PlatformConnection, customerID string, urls []string) {
	for _, url := range urls {
		if _, err := sender.SendImage(ctx, conn, customerID, url, ""); err != nil {
			metrics.RecordDispatchSend(string(conn.Platform), "image", "error")
			d.logger.Warn("image send failed, continuing",
				zap.String("platform", string(conn.Platform)),
				zap.String("url", url),
				zap.Error(err),
			)
			continue
		}
		metrics.RecordDispatchSend(string(conn.Platform), "image", "ok")
	}
}
