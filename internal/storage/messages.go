package storage

import (
	"context"
	"errors"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Service) SaveMessage(ctx context.Context, msg *models.Message) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Service) GetMessage(ctx context.Context, chatID, messageID string) (*models.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var msg models.Message
	err := s.DB.WithContext(ctx).Where("id = ? AND chat_id = ?", messageID, chatID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("message.not_found", "message not found")
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &msg, nil
}

// ListMessages returns up to limit messages of a chat, newest first.
func (s *Service) ListMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var msgs []models.Message
	err := s.DB.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return msgs, nil
}

func (s *Service) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.DB.WithContext(ctx).
		Where("id = ? AND chat_id = ?", messageID, chatID).
		Delete(&models.Message{}).Error
	return storeErr(err)
}

func (s *Service) DeleteMessagesByChat(ctx context.Context, chatID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.DB.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.Message{}).Error
	return storeErr(err)
}

func (s *Service) MarkMessageRead(ctx context.Context, chatID, messageID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND chat_id = ?", messageID, chatID).
		Update("is_read", true)
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("message.not_found", "message not found")
	}
	return nil
}
