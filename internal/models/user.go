package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"relaychat/backend/internal/apperr"
)

// User is a registered account. Exactly one of PhoneNumber/Email is the
// authentication anchor; both are unique when present.
type User struct {
	ID           string  `gorm:"primaryKey" json:"id"`
	PhoneNumber  *string `gorm:"uniqueIndex" json:"phoneNumber,omitempty"`
	Email        *string `gorm:"uniqueIndex" json:"email,omitempty"`
	PasswordHash string  `gorm:"column:password" json:"-"`
	DisplayName  string  `json:"displayName"`
	PhotoURL     string  `json:"photoUrl,omitempty"`
	Status       string  `json:"status,omitempty"`
	LastSeen     int64   `json:"lastSeen,omitempty"`
	PushToken    string  `gorm:"column:fcm_token" json:"-"`
}

// BeforeCreate refuses users without an authentication anchor and assigns a
// UUID when the caller did not set an id.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if !u.HasAnchor() {
		return apperr.Validation("user.anchor_missing", "a user needs a phone number or an email")
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// HasAnchor reports whether the user can authenticate at all.
func (u *User) HasAnchor() bool {
	return (u.PhoneNumber != nil && *u.PhoneNumber != "") || (u.Email != nil && *u.Email != "")
}

// PublicProfile is what other users are allowed to see.
type PublicProfile struct {
	ID          string  `json:"id"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Email       *string `json:"email,omitempty"`
	DisplayName string  `json:"displayName"`
	PhotoURL    string  `json:"photoUrl,omitempty"`
	Status      string  `json:"status,omitempty"`
	LastSeen    int64   `json:"lastSeen,omitempty"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Status:      u.Status,
		LastSeen:    u.LastSeen,
	}
}

// ProfileUpdate holds the mutable profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string
	Status      *string
	PhotoURL    *string
}
