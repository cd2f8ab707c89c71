package models

import (
	"slices"

	"github.com/lib/pq"
)

// Chat is either a pairwise conversation or a group.
//
// Pairwise ids are derived from the sorted participant ids, so concurrent
// creation for the same pair lands on one row. Group ids are minted fresh with
// a "group_" prefix and never collide with a pairwise id.
type Chat struct {
	ID                   string         `gorm:"primaryKey" json:"id"`
	Participants         pq.StringArray `gorm:"type:text[];not null" json:"participants"`
	LastMessage          string         `json:"lastMessage"`
	LastMessageTimestamp int64          `gorm:"index" json:"lastMessageTimestamp"`
	IsGroup              bool           `gorm:"not null;default:false" json:"isGroup"`
	GroupName            *string        `json:"groupName,omitempty"`
	GroupAdminID         *string        `json:"groupAdminId,omitempty"`
}

func (c *Chat) HasParticipant(userID string) bool {
	return slices.Contains(c.Participants, userID)
}

// IsAdmin reports whether userID administers this group chat.
func (c *Chat) IsAdmin(userID string) bool {
	return c.IsGroup && c.GroupAdminID != nil && *c.GroupAdminID == userID
}

// Clone returns a copy that does not share the participants slice.
func (c *Chat) Clone() *Chat {
	cp := *c
	cp.Participants = append(pq.StringArray(nil), c.Participants...)
	return &cp
}
