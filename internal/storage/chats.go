package storage

import (
	"context"
	"errors"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Service) CreateChatIfAbsent(ctx context.Context, chat *models.Chat) (*models.Chat, bool, error) {
	tctx, cancel := s.withTimeout(ctx)
	res := s.DB.WithContext(tctx).Clauses(clause.OnConflict{DoNothing: true}).Create(chat)
	cancel()
	if res.Error != nil {
		return nil, false, storeErr(res.Error)
	}
	if res.RowsAffected == 1 {
		return chat, true, nil
	}

	// Lost the race: return the row the other caller inserted.
	stored, err := s.GetChat(ctx, chat.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

func (s *Service) CreateChat(ctx context.Context, chat *models.Chat) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.DB.WithContext(ctx).Create(chat).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("chat.exists", "chat already exists")
	}
	return storeErr(err)
}

func (s *Service) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var chat models.Chat
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("chat.not_found", "chat not found")
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &chat, nil
}

// ListChatsForUser returns the user's chats, most recently active first.
func (s *Service) ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var chats []models.Chat
	err := s.DB.WithContext(ctx).
		Where("? = ANY(participants)", userID).
		Order("last_message_timestamp DESC").
		Find(&chats).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return chats, nil
}

// AddParticipant appends in a single statement so concurrent adds cannot lose updates.
func (s *Service) AddParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := s.DB.WithContext(ctx).Model(&models.Chat{}).
		Where("id = ? AND NOT (? = ANY(participants))", chatID, userID).
		Update("participants", gorm.Expr("array_append(participants, ?)", userID))
	if res.Error != nil {
		return false, storeErr(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Service) RemoveParticipant(ctx context.Context, chatID, userID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.DB.WithContext(ctx).Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("participants", gorm.Expr("array_remove(participants, ?)", userID)).Error
	return storeErr(err)
}

// UpdateChatSummary never moves the summary back in time.
func (s *Service) UpdateChatSummary(ctx context.Context, chatID, text string, at int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.DB.WithContext(ctx).Model(&models.Chat{}).
		Where("id = ? AND last_message_timestamp <= ?", chatID, at).
		Updates(map[string]interface{}{
			"last_message":           text,
			"last_message_timestamp": at,
		}).Error
	return storeErr(err)
}

func (s *Service) DeleteChat(ctx context.Context, chatID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.DB.WithContext(ctx).Where("id = ?", chatID).Delete(&models.Chat{}).Error
	return storeErr(err)
}
