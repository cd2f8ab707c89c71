// Package gateway dispatches events read from client sockets.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/chathub"
	"relaychat/backend/internal/localization"
	"relaychat/backend/internal/messaging"
	"relaychat/backend/internal/models"
	"relaychat/backend/internal/signaling"
	"relaychat/backend/internal/storage"
)

// Store is what the gateway reads directly: chat membership for joins and
// last-seen updates on disconnect.
type Store interface {
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
}

var _ Store = (storage.Storage)(nil)

type Gateway struct {
	hub      *chathub.ManagerService
	messages *messaging.Pipeline
	calls    *signaling.Router
	store    Store
	loc      *localization.Localizer
	log      *slog.Logger
}

var _ chathub.EventHandler = (*Gateway)(nil)

func New(hub *chathub.ManagerService, messages *messaging.Pipeline, calls *signaling.Router, store Store, loc *localization.Localizer, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = localization.Bundled()
	}
	return &Gateway{
		hub:      hub,
		messages: messages,
		calls:    calls,
		store:    store,
		loc:      loc,
		log:      log.With("component", "gateway"),
	}
}

// HandleClientEvent runs one client action. Failures are reported to the
// sending connection only.
func (g *Gateway) HandleClientEvent(c chathub.Client, ev models.InboundEvent) {
	ctx := context.Background()
	userID := c.GetUserID()

	var err error
	switch ev.Name {
	case models.EventJoinChat:
		err = g.joinChat(ctx, c, ev.Data)

	case models.EventSendMessage:
		var req models.SendMessageRequest
		if err = decode(ev.Data, &req); err == nil {
			_, err = g.messages.Send(ctx, userID, req)
		}

	case models.EventMarkRead:
		var ref models.MessageRef
		if err = decode(ev.Data, &ref); err == nil {
			err = g.messages.MarkRead(ctx, userID, ref.ChatID, ref.MessageID)
		}

	case models.EventCallUser:
		var req models.CallRequest
		if err = decode(ev.Data, &req); err == nil {
			_, err = g.calls.CallUser(ctx, userID, req)
		}

	case models.EventGroupCall:
		var req models.GroupCallRequest
		if err = decode(ev.Data, &req); err == nil {
			_, err = g.calls.GroupCall(ctx, userID, req)
		}

	default:
		err = apperr.Validation("error.validation", "unknown event "+ev.Name)
	}

	if err != nil {
		g.reportError(c, ev.Name, err)
	}
}

// joinChat accepts either a bare chat id string or {"chatId": ...}.
// Only participants may subscribe to a chat's room.
func (g *Gateway) joinChat(ctx context.Context, c chathub.Client, data json.RawMessage) error {
	var chatID string
	if err := json.Unmarshal(data, &chatID); err != nil {
		var ref models.ChatRef
		if err := decode(data, &ref); err != nil {
			return err
		}
		chatID = ref.ChatID
	}
	if chatID == "" {
		return apperr.Validation("error.validation", "chatId is required")
	}

	chat, err := g.store.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(c.GetUserID()) {
		return apperr.Forbidden("chat.not_participant", "you are not a participant of this chat")
	}
	g.hub.Join(c, chatID)
	return nil
}

// ClientDisconnected records lastSeen unless a newer connection is still online.
func (g *Gateway) ClientDisconnected(c chathub.Client) {
	userID := c.GetUserID()
	if g.hub.IsOnline(userID) {
		return
	}
	if err := g.store.TouchLastSeen(context.Background(), userID, time.Now()); err != nil {
		g.log.Warn("failed to update last seen", "user_id", userID, "error", err)
	}
}

func (g *Gateway) reportError(c chathub.Client, event string, err error) {
	e := apperr.From(err)
	if e.Kind == apperr.KindStore {
		g.log.Error("socket action failed", "event", event, "user_id", c.GetUserID(), "error", err)
	} else {
		g.log.Debug("socket action rejected", "event", event, "user_id", c.GetUserID(), "error", err)
	}

	lang := localization.DefaultLanguage
	if l, ok := c.(interface{ Language() string }); ok && l.Language() != "" {
		lang = l.Language()
	}
	c.Send(models.Event{Name: models.EventError, Data: models.ErrorPayload{
		Event:   event,
		Kind:    e.Kind.String(),
		Message: g.loc.ErrorMessage(lang, e),
	}})
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return apperr.Validation("error.validation", "missing event data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &apperr.Error{Kind: apperr.KindValidation, Key: "error.validation", Message: "malformed event data", Err: err}
	}
	return nil
}
