package storage

import (
	"context"
	"errors"
	"time"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByPhone(ctx context.Context, phones ...string) (*models.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error)
	UpdatePushToken(ctx context.Context, id, token string) error
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
	CountUsers(ctx context.Context, ids []string) (int64, error)
}

// ChatStore persists chats and their participant lists.
type ChatStore interface {
	// CreateChatIfAbsent inserts chat unless a row with the same id exists and
	// returns the stored row. created is false when another caller won the race.
	CreateChatIfAbsent(ctx context.Context, chat *models.Chat) (stored *models.Chat, created bool, err error)
	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error)
	// AddParticipant appends userID unless present; added is false when it already was.
	AddParticipant(ctx context.Context, chatID, userID string) (added bool, err error)
	RemoveParticipant(ctx context.Context, chatID, userID string) error
	UpdateChatSummary(ctx context.Context, chatID, text string, at int64) error
	DeleteChat(ctx context.Context, chatID string) error
}

// MessageStore persists messages.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, chatID, messageID string) (*models.Message, error)
	ListMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error)
	DeleteMessage(ctx context.Context, chatID, messageID string) error
	DeleteMessagesByChat(ctx context.Context, chatID string) error
	MarkMessageRead(ctx context.Context, chatID, messageID string) error
}

// OTPStore keeps one-time codes with an expiry.
type OTPStore interface {
	SaveOTP(ctx context.Context, code string, ttl time.Duration, phones ...string) error
	// ConsumeOTP atomically checks code against phones[0] and deletes it and
	// every alias on a match. It reports whether the code matched.
	ConsumeOTP(ctx context.Context, code string, phones ...string) (bool, error)
	DeleteOTP(ctx context.Context, phones ...string) error
}

// Storage is the durable store of record.
type Storage interface {
	UserStore
	ChatStore
	MessageStore
}

type Service struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Timeout time.Duration
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client, timeout time.Duration) *Service {
	return &Service{
		DB:      db,
		Redis:   rdb,
		Timeout: timeout,
	}
}

// Migrate creates or updates the users, chats and messages tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Chat{},
		&models.Message{},
	)
}

// Ping checks both backends.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	if s.Redis != nil {
		return s.Redis.Ping(ctx).Err()
	}
	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// storeErr keeps typed errors and wraps everything else as a store failure.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		return e
	}
	return apperr.Store(err)
}
