package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/models"

	"gorm.io/gorm"
)

// CreateUser inserts a new user. A duplicate phone or email yields Conflict.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.DB.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("user.exists", "a user with this phone number or email already exists")
	}
	return storeErr(err)
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var user models.User
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user.not_found", "user not found")
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &user, nil
}

// FindUserByEmail looks the user up by normalized email. It returns nil, nil when absent.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var user models.User
	err := s.DB.WithContext(ctx).
		Where("LOWER(TRIM(email)) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &user, nil
}

// FindUserByPhone returns the user registered under any of phones, or nil, nil.
func (s *Service) FindUserByPhone(ctx context.Context, phones ...string) (*models.User, error) {
	if len(phones) == 0 {
		return nil, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var user models.User
	err := s.DB.WithContext(ctx).Where("phone_number IN ?", phones).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &user, nil
}

func (s *Service) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pattern := "%" + escapeLike(query) + "%"
	var users []models.User
	err := s.DB.WithContext(ctx).
		Where("phone_number ILIKE ? OR display_name ILIKE ? OR email ILIKE ?", pattern, pattern, pattern).
		Order("display_name ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return users, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	fields := map[string]interface{}{}
	if upd.DisplayName != nil {
		fields["display_name"] = *upd.DisplayName
	}
	if upd.Status != nil {
		fields["status"] = *upd.Status
	}
	if upd.PhotoURL != nil {
		fields["photo_url"] = *upd.PhotoURL
	}

	if len(fields) > 0 {
		tctx, cancel := s.withTimeout(ctx)
		res := s.DB.WithContext(tctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
		cancel()
		if res.Error != nil {
			return nil, storeErr(res.Error)
		}
	}
	return s.GetUserByID(ctx, id)
}

func (s *Service) UpdatePushToken(ctx context.Context, id, token string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("fcm_token", token)
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user.not_found", "user not found")
	}
	return nil
}

func (s *Service) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_seen", at.UnixMilli()).Error
	return storeErr(err)
}

// CountUsers returns how many of ids exist.
func (s *Service) CountUsers(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id IN ?", ids).Count(&n).Error
	if err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
