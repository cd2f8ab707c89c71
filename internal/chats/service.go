// Package chats creates pairwise chats and manages group membership.
package chats

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/config"
	"relaychat/backend/internal/models"
	"relaychat/backend/internal/storage"
)

// Notifier delivers targeted events and maintains room subscriptions across
// every process serving sockets.
type Notifier interface {
	SendToUser(ctx context.Context, userID string, ev models.Event) bool
	LeaveRoom(ctx context.Context, userID, chatID string)
	CloseRoom(ctx context.Context, chatID string)
}

type Service struct {
	store storage.Storage
	hub   Notifier
	now   func() time.Time
	log   *slog.Logger
}

func NewService(store storage.Storage, hub Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, hub: hub, now: time.Now, log: log.With("component", "chats")}
}

// PairChatID derives the id of the pairwise chat between a and b.
// It is independent of argument order. The "_" separator is unambiguous only
// because user ids are UUIDs, which never contain it; ids with "_" could
// collide ("a_b"+"c" and "a"+"b_c").
func PairChatID(a, b string) string {
	ids := []string{a, b}
	slices.Sort(ids)
	return strings.Join(ids, "_")
}

// CreateChat returns the pairwise chat between the caller and one other user,
// creating it on first use. Concurrent calls for the same pair converge on one row.
func (s *Service) CreateChat(ctx context.Context, callerID string, participants []string) (*models.Chat, error) {
	ids := lo.Uniq(lo.Compact(participants))
	if len(ids) == 1 && ids[0] != callerID {
		ids = append(ids, callerID)
	}
	if len(ids) != 2 || !slices.Contains(ids, callerID) {
		return nil, apperr.Validation("chat.participants_invalid", "a chat needs you and exactly one other user")
	}
	other := ids[0]
	if other == callerID {
		other = ids[1]
	}

	if _, err := s.store.GetUserByID(ctx, other); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("chat.user_not_found", "user not found")
		}
		return nil, err
	}

	slices.Sort(ids)
	chat := &models.Chat{
		ID:                   PairChatID(ids[0], ids[1]),
		Participants:         pq.StringArray(ids),
		LastMessage:          config.ChatCreatedSummary,
		LastMessageTimestamp: s.now().UnixMilli(),
	}

	stored, created, err := s.store.CreateChatIfAbsent(ctx, chat)
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info("chat created", "chat_id", stored.ID)
		s.notifyEach(ctx, stored.Participants, models.Event{Name: models.EventChatCreated, Data: stored})
	}
	return stored, nil
}

// ListChats returns the caller's chats, most recently active first.
func (s *Service) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	chats, err := s.store.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	return chats, nil
}

// ListMessages returns up to limit messages, newest first. Only participants may read.
func (s *Service) ListMessages(ctx context.Context, userID, chatID string, limit int) ([]models.Message, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, apperr.Forbidden("chat.not_participant", "you are not a participant of this chat")
	}

	if limit <= 0 || limit > config.MessageHistoryLimit {
		limit = config.MessageHistoryLimit
	}
	msgs, err := s.store.ListMessages(ctx, chatID, limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// CreateGroup mints a new group administered by adminID, who is always a participant.
func (s *Service) CreateGroup(ctx context.Context, adminID string, participants []string, name string) (*models.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > config.MaxGroupNameLen {
		return nil, apperr.Validation("error.validation", "group name is required and must be at most 128 characters")
	}

	members := lo.Uniq(append([]string{adminID}, lo.Compact(participants)...))
	others := lo.Without(members, adminID)
	n, err := s.store.CountUsers(ctx, others)
	if err != nil {
		return nil, err
	}
	if n != int64(len(others)) {
		return nil, apperr.NotFound("chat.user_not_found", "one or more participants do not exist")
	}

	admin := adminID
	chat := &models.Chat{
		ID:                   config.GroupIDPrefix + uuid.NewString(),
		Participants:         pq.StringArray(members),
		LastMessageTimestamp: s.now().UnixMilli(),
		IsGroup:              true,
		GroupName:            &name,
		GroupAdminID:         &admin,
	}
	if err := s.store.CreateChat(ctx, chat); err != nil {
		return nil, err
	}

	s.log.Info("group created", "chat_id", chat.ID, "admin_id", adminID, "members", len(members))
	s.notifyEach(ctx, chat.Participants, models.Event{Name: models.EventChatCreated, Data: chat})
	return chat, nil
}

// AddParticipant adds userID to a group. Only the admin may do this.
func (s *Service) AddParticipant(ctx context.Context, actorID, chatID, userID string) (*models.Chat, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Validation("error.validation", "userId is required")
	}
	chat, err := s.adminGroup(ctx, actorID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.HasParticipant(userID) {
		return nil, apperr.Conflict("group.already_member", "user is already a participant")
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	added, err := s.store.AddParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, apperr.Conflict("group.already_member", "user is already a participant")
	}

	updated := chat.Clone()
	updated.Participants = append(updated.Participants, userID)
	s.hub.SendToUser(ctx, userID, models.Event{Name: models.EventChatCreated, Data: updated})
	s.log.Info("participant added", "chat_id", chatID, "user_id", userID)
	return updated, nil
}

// RemoveParticipant drops userID from a group. Removing someone who is not a
// member succeeds without effect. The admin cannot be removed.
func (s *Service) RemoveParticipant(ctx context.Context, actorID, chatID, userID string) (*models.Chat, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Validation("error.validation", "userId is required")
	}
	chat, err := s.adminGroup(ctx, actorID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.IsAdmin(userID) {
		return nil, apperr.Validation("group.admin_removal", "the admin cannot be removed; delete the group instead")
	}

	if err := s.store.RemoveParticipant(ctx, chatID, userID); err != nil {
		return nil, err
	}

	s.hub.LeaveRoom(ctx, userID, chatID)
	s.hub.SendToUser(ctx, userID, models.Event{Name: models.EventGroupLeft, Data: models.ChatRef{ChatID: chatID}})
	s.log.Info("participant removed", "chat_id", chatID, "user_id", userID)

	updated := chat.Clone()
	updated.Participants = lo.Without(updated.Participants, userID)
	return updated, nil
}

// DeleteGroup removes every message of the group, then the group itself, and
// notifies all former participants.
func (s *Service) DeleteGroup(ctx context.Context, actorID, chatID string) error {
	chat, err := s.adminGroup(ctx, actorID, chatID)
	if err != nil {
		return err
	}
	return s.deleteGroup(ctx, chat)
}

// ForceDeleteGroup deletes a group without an admin check. It is meant for operators.
func (s *Service) ForceDeleteGroup(ctx context.Context, chatID string) error {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroup {
		return apperr.NotFound("group.not_found", "group not found")
	}
	return s.deleteGroup(ctx, chat)
}

func (s *Service) deleteGroup(ctx context.Context, chat *models.Chat) error {
	if err := s.store.DeleteMessagesByChat(ctx, chat.ID); err != nil {
		return err
	}
	if err := s.store.DeleteChat(ctx, chat.ID); err != nil {
		return err
	}

	s.notifyEach(ctx, chat.Participants, models.Event{Name: models.EventGroupDeleted, Data: models.ChatRef{ChatID: chat.ID}})
	s.hub.CloseRoom(ctx, chat.ID)
	s.log.Info("group deleted", "chat_id", chat.ID)
	return nil
}

// adminGroup loads a group and checks that actorID administers it.
func (s *Service) adminGroup(ctx context.Context, actorID, chatID string) (*models.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("group.not_found", "group not found")
		}
		return nil, err
	}
	if !chat.IsGroup {
		return nil, apperr.NotFound("group.not_found", "group not found")
	}
	if !chat.IsAdmin(actorID) {
		return nil, apperr.Forbidden("group.admin_only", "only the group admin can do this")
	}
	return chat, nil
}

func (s *Service) notifyEach(ctx context.Context, userIDs []string, ev models.Event) {
	for _, id := range userIDs {
		s.hub.SendToUser(ctx, id, ev)
	}
}
