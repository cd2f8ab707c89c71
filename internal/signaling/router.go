// Package signaling relays call invitations between connected users.
// Nothing here is persisted; unreachable callees are skipped.
package signaling

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"relaychat/backend/internal/models"
	"relaychat/backend/internal/validation"
)

// UserSender delivers an event to one user's current connection.
type UserSender interface {
	SendToUser(ctx context.Context, userID string, ev models.Event) bool
}

type Router struct {
	hub UserSender
	log *slog.Logger
}

func NewRouter(hub UserSender, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{hub: hub, log: log.With("component", "signaling")}
}

// CallUser rings one user. It reports whether the callee was reachable.
func (r *Router) CallUser(ctx context.Context, from string, req models.CallRequest) (bool, error) {
	if err := validation.Struct(req); err != nil {
		return false, err
	}
	reached := r.hub.SendToUser(ctx, req.To, models.Event{
		Name: models.EventIncomingCall,
		Data: models.IncomingCall{From: from, ChannelName: req.ChannelName, Type: req.Type},
	})
	r.log.Debug("call relayed", "from", from, "to", req.To, "reached", reached)
	return reached, nil
}

// GroupCall rings every listed participant except the caller and returns how
// many were reachable.
func (r *Router) GroupCall(ctx context.Context, from string, req models.GroupCallRequest) (int, error) {
	if err := validation.Struct(req); err != nil {
		return 0, err
	}
	ev := models.Event{
		Name: models.EventIncomingGroupCall,
		Data: models.IncomingGroupCall{
			From:         from,
			ChannelName:  req.ChannelName,
			Type:         req.Type,
			Participants: req.Participants,
		},
	}

	reached := 0
	for _, id := range lo.Without(lo.Uniq(req.Participants), from) {
		if r.hub.SendToUser(ctx, id, ev) {
			reached++
		}
	}
	r.log.Debug("group call relayed", "from", from, "invited", len(req.Participants), "reached", reached)
	return reached, nil
}
