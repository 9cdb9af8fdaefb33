package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnireply-ai/messaging-platform/internal/ai"
	"github.com/omnireply-ai/messaging-platform/internal/model"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
)

type sendRecord struct {
	kind string
	body string
}

type fakeSender struct {
	platform model.Platform
	sends    []sendRecord
	textErr  error
	imageErr error
}

func (f *fakeSender) Platform() model.Platform { return f.platform }

func (f *fakeSender) SendText(ctx context.Context, conn *model.PlatformConnection, customerID, text string) (string, error) {
	if f.textErr != nil {
		return "", f.textErr
	}
	f.sends = append(f.sends, sendRecord{kind: "text", body: text})
	return "pm-text", nil
}

func (f *fakeSender) SendImage(ctx context.Context, conn *model.PlatformConnection, customerID, imageURL, caption string) (string, error) {
	if f.imageErr != nil {
		return "", f.imageErr
	}
	f.sends = append(f.sends, sendRecord{kind: "image", body: imageURL})
	return "pm-img", nil
}

type fakeStore struct {
	appended []*model.Message
	err      error
}

func (f *fakeStore) AppendOutbound(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	msg.ID = "stored-1"
	f.appended = append(f.appended, msg)
	return msg, nil
}

type fakeConnections struct {
	conn *model.PlatformConnection
}

func (f *fakeConnections) Connection(ctx context.Context, connectionID string) (*model.PlatformConnection, error) {
	return f.conn, nil
}

func newDispatcher(t *testing.T, platform model.Platform) (*Dispatcher, *fakeSender, *fakeStore, *fakeConnections) {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)

	sender := &fakeSender{platform: platform}
	store := &fakeStore{}
	conns := &fakeConnections{conn: &model.PlatformConnection{
		ID: "conn-1", CompanyID: "co-1", Platform: platform, Active: true,
	}}
	return New(store, conns, log, sender), sender, store, conns
}

func conversation() *model.Conversation {
	return &model.Conversation{
		ID: "conv-1", CompanyID: "co-1", CustomerID: "cust-1", ConnectionID: "conn-1",
		Status: model.ConversationOpen, IsAIHandling: true,
	}
}

func answerWithImages() *ai.Answer {
	return &ai.Answer{
		Text:         "Here you go.",
		ImagesToSend: []string{"https://x.co/a.jpg", "https://x.co/b.jpg"},
		Provider:     "openai",
		Model:        "gpt-4o",
	}
}

func kinds(sends []sendRecord) []string {
	out := make([]string, 0, len(sends))
	for _, s := range sends {
		out = append(out, s.kind)
	}
	return out
}

func TestDeliverImagesBeforeTextOnWhatsApp(t *testing.T) {
	d, sender, _, _ := newDispatcher(t, model.PlatformWhatsApp)

	require.NoError(t, d.Deliver(context.Background(), conversation(), answerWithImages()))
	assert.Equal(t, []string{"image", "image", "text"}, kinds(sender.sends))
}

func TestDeliverTextBeforeImagesOnFacebook(t *testing.T) {
	d, sender, _, _ := newDispatcher(t, model.PlatformFacebook)

	require.NoError(t, d.Deliver(context.Background(), conversation(), answerWithImages()))
	assert.Equal(t, []string{"text", "image", "image"}, kinds(sender.sends))
}

func TestDeliverPersistsBeforeSending(t *testing.T) {
	d, _, store, _ := newDispatcher(t, model.PlatformTelegram)

	require.NoError(t, d.Deliver(context.Background(), conversation(), answerWithImages()))
	require.Len(t, store.appended, 1)
	stored := store.appended[0]
	assert.Equal(t, model.SenderAI, stored.Sender)
	assert.Equal(t, model.TypeTextWithImages, stored.Type)
	assert.Len(t, stored.Media, 2)
	assert.Equal(t, "openai", stored.Metadata.Provider)
	assert.Equal(t, "pm-text", stored.PlatformMessageID)
}

func TestDeliverInactiveConnectionPersistsOnly(t *testing.T) {
	d, sender, store, conns := newDispatcher(t, model.PlatformLine)
	conns.conn.Active = false

	require.NoError(t, d.Deliver(context.Background(), conversation(), answerWithImages()))
	assert.Len(t, store.appended, 1, "answer still persisted")
	assert.Empty(t, sender.sends, "nothing sent on an inactive connection")
}

func TestDeliverImageFailureContinues(t *testing.T) {
	d, sender, _, _ := newDispatcher(t, model.PlatformWhatsApp)
	sender.imageErr = errors.New("media rejected")

	require.NoError(t, d.Deliver(context.Background(), conversation(), answerWithImages()),
		"image failures never fail the delivery")
	assert.Equal(t, []string{"text"}, kinds(sender.sends))
}

func TestDeliverTextFailureFails(t *testing.T) {
	d, sender, store, _ := newDispatcher(t, model.PlatformWebWidget)
	sender.textErr = errors.New("widget session gone")

	err := d.Deliver(context.Background(), conversation(), answerWithImages())
	require.Error(t, err)
	assert.True(t, ai.IsKind(err, ai.KindTransportError))
	assert.Len(t, store.appended, 1, "message persisted even though send failed")
}

func TestDeliverNoSenderForPlatform(t *testing.T) {
	log, err := logger.New("error")
	require.NoError(t, err)
	store := &fakeStore{}
	conns := &fakeConnections{conn: &model.PlatformConnection{ID: "conn-1", Platform: model.PlatformTelegram, Active: true}}
	d := New(store, conns, log)

	deliverErr := d.Deliver(context.Background(), conversation(), answerWithImages())
	require.Error(t, deliverErr)
	assert.True(t, ai.IsKind(deliverErr, ai.KindTransportError))
}

func TestDeliverTextOnlyAnswer(t *testing.T) {
	d, sender, store, _ := newDispatcher(t, model.PlatformWhatsApp)

	require.NoError(t, d.Deliver(context.Background(), conversation(), &ai.Answer{Text: "Just text.", Provider: "openai", Model: "gpt-4o"}))
	assert.Equal(t, []string{"text"}, kinds(sender.sends))
	assert.Equal(t, model.TypeText, store.appended[0].Type)
}
