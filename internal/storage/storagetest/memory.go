// Package storagetest provides an in-memory Storage and OTPStore for tests.
package storagetest

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/models"
	"relaychat/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	_ storage.Storage  = (*Memory)(nil)
	_ storage.OTPStore = (*Memory)(nil)
)

type otpEntry struct {
	code    string
	expires time.Time
}

// Memory mirrors the constraints of the postgres store: unique anchors,
// insert-if-absent chats and atomic participant updates.
type Memory struct {
	mu       sync.Mutex
	users    map[string]models.User
	chats    map[string]models.Chat
	messages map[string]models.Message
	otps     map[string]otpEntry
	fail     map[string]error

	// Now is used for OTP expiry; tests may replace it.
	Now func() time.Time
}

func New() *Memory {
	return &Memory{
		users:    make(map[string]models.User),
		chats:    make(map[string]models.Chat),
		messages: make(map[string]models.Message),
		otps:     make(map[string]otpEntry),
		fail:     make(map[string]error),
		Now:      time.Now,
	}
}

// FailOn makes the named method return err until cleared with a nil err.
func (m *Memory) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, method)
		return
	}
	m.fail[method] = err
}

func (m *Memory) failure(method string) error {
	if err, ok := m.fail[method]; ok {
		return apperr.Store(err)
	}
	return nil
}

// MessageCount returns how many messages belong to chatID.
func (m *Memory) MessageCount(chatID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			n++
		}
	}
	return n
}

// ChatCount returns the number of stored chats.
func (m *Memory) ChatCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chats)
}

func cloneChat(c models.Chat) *models.Chat {
	c.Participants = append(pq.StringArray(nil), c.Participants...)
	return &c
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// --- users ---

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateUser"); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	for _, u := range m.users {
		if u.ID == user.ID ||
			(user.Email != nil && u.Email != nil && normEmail(*u.Email) == normEmail(*user.Email)) ||
			(user.PhoneNumber != nil && u.PhoneNumber != nil && *u.PhoneNumber == *user.PhoneNumber) {
			return apperr.Conflict("user.exists", "a user with this phone number or email already exists")
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *Memory) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetUserByID"); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user.not_found", "user not found")
	}
	return &u, nil
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindUserByEmail"); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.Email != nil && normEmail(*u.Email) == normEmail(email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindUserByPhone(_ context.Context, phones ...string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindUserByPhone"); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.PhoneNumber != nil && slices.Contains(phones, *u.PhoneNumber) {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Memory) SearchUsers(_ context.Context, query string, limit int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(query)
	var out []models.User
	for _, u := range m.users {
		fields := []string{u.DisplayName}
		if u.Email != nil {
			fields = append(fields, *u.Email)
		}
		if u.PhoneNumber != nil {
			fields = append(fields, *u.PhoneNumber)
		}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), q) {
				out = append(out, u)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) UpdateProfile(_ context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user.not_found", "user not found")
	}
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	if upd.Status != nil {
		u.Status = *upd.Status
	}
	if upd.PhotoURL != nil {
		u.PhotoURL = *upd.PhotoURL
	}
	m.users[id] = u
	return &u, nil
}

func (m *Memory) UpdatePushToken(_ context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperr.NotFound("user.not_found", "user not found")
	}
	u.PushToken = token
	m.users[id] = u
	return nil
}

func (m *Memory) TouchLastSeen(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastSeen = at.UnixMilli()
		m.users[id] = u
	}
	return nil
}

func (m *Memory) CountUsers(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.users[id]; ok {
			n++
		}
	}
	return n, nil
}

// --- chats ---

func (m *Memory) CreateChatIfAbsent(_ context.Context, chat *models.Chat) (*models.Chat, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateChatIfAbsent"); err != nil {
		return nil, false, err
	}
	if existing, ok := m.chats[chat.ID]; ok {
		return cloneChat(existing), false, nil
	}
	m.chats[chat.ID] = *cloneChat(*chat)
	return chat, true, nil
}

func (m *Memory) CreateChat(_ context.Context, chat *models.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateChat"); err != nil {
		return err
	}
	if _, ok := m.chats[chat.ID]; ok {
		return apperr.Conflict("chat.exists", "chat already exists")
	}
	m.chats[chat.ID] = *cloneChat(*chat)
	return nil
}

func (m *Memory) GetChat(_ context.Context, id string) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetChat"); err != nil {
		return nil, err
	}
	c, ok := m.chats[id]
	if !ok {
		return nil, apperr.NotFound("chat.not_found", "chat not found")
	}
	return cloneChat(c), nil
}

func (m *Memory) ListChatsForUser(_ context.Context, userID string) ([]models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Chat
	for _, c := range m.chats {
		if slices.Contains(c.Participants, userID) {
			out = append(out, *cloneChat(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageTimestamp > out[j].LastMessageTimestamp })
	return out, nil
}

func (m *Memory) AddParticipant(_ context.Context, chatID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AddParticipant"); err != nil {
		return false, err
	}
	c, ok := m.chats[chatID]
	if !ok || slices.Contains(c.Participants, userID) {
		return false, nil
	}
	c.Participants = append(append(pq.StringArray(nil), c.Participants...), userID)
	m.chats[chatID] = c
	return true, nil
}

func (m *Memory) RemoveParticipant(_ context.Context, chatID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("RemoveParticipant"); err != nil {
		return err
	}
	c, ok := m.chats[chatID]
	if !ok {
		return nil
	}
	kept := pq.StringArray{}
	for _, p := range c.Participants {
		if p != userID {
			kept = append(kept, p)
		}
	}
	c.Participants = kept
	m.chats[chatID] = c
	return nil
}

func (m *Memory) UpdateChatSummary(_ context.Context, chatID, text string, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateChatSummary"); err != nil {
		return err
	}
	c, ok := m.chats[chatID]
	if !ok || c.LastMessageTimestamp > at {
		return nil
	}
	c.LastMessage = text
	c.LastMessageTimestamp = at
	m.chats[chatID] = c
	return nil
}

func (m *Memory) DeleteChat(_ context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("DeleteChat"); err != nil {
		return err
	}
	delete(m.chats, chatID)
	return nil
}

// --- messages ---

func (m *Memory) SaveMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("SaveMessage"); err != nil {
		return err
	}
	m.messages[msg.ID] = *msg
	return nil
}

func (m *Memory) GetMessage(_ context.Context, chatID, messageID string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok || msg.ChatID != chatID {
		return nil, apperr.NotFound("message.not_found", "message not found")
	}
	return &msg, nil
}

func (m *Memory) ListMessages(_ context.Context, chatID string, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) DeleteMessage(_ context.Context, chatID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("DeleteMessage"); err != nil {
		return err
	}
	if msg, ok := m.messages[messageID]; ok && msg.ChatID == chatID {
		delete(m.messages, messageID)
	}
	return nil
}

func (m *Memory) DeleteMessagesByChat(_ context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("DeleteMessagesByChat"); err != nil {
		return err
	}
	for id, msg := range m.messages {
		if msg.ChatID == chatID {
			delete(m.messages, id)
		}
	}
	return nil
}

func (m *Memory) MarkMessageRead(_ context.Context, chatID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok || msg.ChatID != chatID {
		return apperr.NotFound("message.not_found", "message not found")
	}
	msg.IsRead = true
	m.messages[messageID] = msg
	return nil
}

// --- otp ---

func (m *Memory) SaveOTP(_ context.Context, code string, ttl time.Duration, phones ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("SaveOTP"); err != nil {
		return err
	}
	for _, p := range phones {
		m.otps[p] = otpEntry{code: code, expires: m.Now().Add(ttl)}
	}
	return nil
}

func (m *Memory) ConsumeOTP(_ context.Context, code string, phones ...string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ConsumeOTP"); err != nil {
		return false, err
	}
	if len(phones) == 0 {
		return false, nil
	}
	e, ok := m.otps[phones[0]]
	if !ok || !m.Now().Before(e.expires) || e.code != code {
		return false, nil
	}
	for _, p := range phones {
		delete(m.otps, p)
	}
	return true, nil
}

func (m *Memory) DeleteOTP(_ context.Context, phones ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range phones {
		delete(m.otps, p)
	}
	return nil
}
