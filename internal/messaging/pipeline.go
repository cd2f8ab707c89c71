// Package messaging persists chat messages and fans them out to chat rooms.
package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/config"
	"relaychat/backend/internal/models"
	"relaychat/backend/internal/storage"
	"relaychat/backend/internal/validation"
)

// Broadcaster delivers an event to every connection subscribed to a chat.
type Broadcaster interface {
	Broadcast(ctx context.Context, chatID string, ev models.Event)
}

type Store interface {
	storage.ChatStore
	storage.MessageStore
}

type Pipeline struct {
	store Store
	hub   Broadcaster
	ids   *IDGenerator
	log   *slog.Logger
}

func NewPipeline(store Store, hub Broadcaster, ids *IDGenerator, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if ids == nil {
		ids = NewIDGenerator()
	}
	return &Pipeline{store: store, hub: hub, ids: ids, log: log.With("component", "messaging")}
}

// Send persists a message from senderID, updates the chat summary and only
// then broadcasts new_message. Nothing is broadcast if any write fails.
func (p *Pipeline) Send(ctx context.Context, senderID string, req models.SendMessageRequest) (*models.Message, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" && (req.MediaURL == nil || *req.MediaURL == "") {
		return nil, apperr.Validation("message.empty", "message needs text or media")
	}
	msgType := req.Type
	if msgType == "" {
		msgType = config.DefaultMessageType
	}

	if _, err := p.store.GetChat(ctx, req.ChatID); err != nil {
		return nil, err
	}

	replyTo := req.ReplyToMessageID
	if replyTo != nil && *replyTo == "" {
		replyTo = nil
	}
	if replyTo != nil {
		if _, err := p.store.GetMessage(ctx, req.ChatID, *replyTo); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.NotFound("message.reply_not_found", "replied-to message is not in this chat")
			}
			return nil, err
		}
	}

	id, ts := p.ids.Next()
	msg := &models.Message{
		ID:               id,
		ChatID:           req.ChatID,
		SenderID:         senderID,
		Text:             req.Text,
		Type:             msgType,
		MediaURL:         req.MediaURL,
		Timestamp:        ts,
		ReplyToMessageID: replyTo,
	}

	if err := p.store.SaveMessage(ctx, msg); err != nil {
		p.log.Error("failed to save message", "chat_id", req.ChatID, "sender_id", senderID, "error", err)
		return nil, err
	}
	if err := p.store.UpdateChatSummary(ctx, msg.ChatID, msg.Summary(), msg.Timestamp); err != nil {
		p.log.Error("failed to update chat summary", "chat_id", msg.ChatID, "message_id", msg.ID, "error", err)
		return nil, err
	}

	p.hub.Broadcast(ctx, msg.ChatID, models.Event{Name: models.EventNewMessage, Data: msg})
	return msg, nil
}

// Delete removes a message. Only its sender may delete it.
func (p *Pipeline) Delete(ctx context.Context, userID, chatID, messageID string) error {
	msg, err := p.store.GetMessage(ctx, chatID, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return apperr.Forbidden("message.not_sender", "only the sender can delete this message")
	}
	if err := p.store.DeleteMessage(ctx, chatID, messageID); err != nil {
		return err
	}

	p.hub.Broadcast(ctx, chatID, models.Event{
		Name: models.EventMessageDeleted,
		Data: models.MessageRef{MessageID: messageID, ChatID: chatID},
	})
	return nil
}

// MarkRead sets isRead and broadcasts a read receipt. The reader must be a participant.
func (p *Pipeline) MarkRead(ctx context.Context, userID, chatID, messageID string) error {
	chat, err := p.store.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return apperr.Forbidden("chat.not_participant", "you are not a participant of this chat")
	}
	if err := p.store.MarkMessageRead(ctx, chatID, messageID); err != nil {
		return err
	}

	p.hub.Broadcast(ctx, chatID, models.Event{
		Name: models.EventMessageRead,
		Data: models.ReadReceipt{MessageID: messageID, ChatID: chatID, ReaderID: userID},
	})
	return nil
}
