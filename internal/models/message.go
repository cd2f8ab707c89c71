package models

// Message is a single chat message. Only IsRead changes after creation.
type Message struct {
	ID               string  `gorm:"primaryKey" json:"id"`
	ChatID           string  `gorm:"not null;index:idx_chat_msg" json:"chatId"`
	SenderID         string  `gorm:"not null" json:"senderId"`
	Text             string  `json:"text"`
	Type             string  `gorm:"not null" json:"type"`
	MediaURL         *string `json:"mediaUrl,omitempty"`
	Timestamp        int64   `gorm:"not null;index:idx_chat_msg" json:"timestamp"`
	IsRead           bool    `gorm:"not null;default:false" json:"isRead"`
	ReplyToMessageID *string `json:"replyToMessageId"`
}

// Summary is the text copied into the owning chat's lastMessage.
func (m *Message) Summary() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Type
}
