package models_test

import (
	"reflect"
	"testing"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

// TestUserBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestUserBeforeCreate_GeneratesUUID(t *testing.T) {
	user := &models.User{PhoneNumber: strPtr("79001234567"), DisplayName: "Anna"}
	assert.Empty(t, user.ID)

	err := user.BeforeCreate(nil)

	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(user.ID)
	assert.NoError(t, parseErr, "User ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
}

func TestUserBeforeCreate_PreservesExistingID(t *testing.T) {
	existingID := uuid.New().String()
	user := &models.User{ID: existingID, Email: strPtr("a@example.com")}

	assert.NoError(t, user.BeforeCreate(nil))
	assert.Equal(t, existingID, user.ID)
}

func TestUserBeforeCreate_MultipleUsers(t *testing.T) {
	users := []*models.User{
		{PhoneNumber: strPtr("79000000001")},
		{PhoneNumber: strPtr("79000000002")},
		{Email: strPtr("c@example.com")},
	}
	seen := make(map[string]bool)
	for _, u := range users {
		assert.NoError(t, u.BeforeCreate(nil))
		assert.NotContains(t, seen, u.ID, "Each user should have a unique ID")
		seen[u.ID] = true
	}
	assert.Len(t, seen, len(users))
}

// TestUserStructTags catches accidental removal of the uniqueness constraints.
func TestUserStructTags(t *testing.T) {
	userType := reflect.TypeOf(models.User{})

	idField, _ := userType.FieldByName("ID")
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey")

	phone, _ := userType.FieldByName("PhoneNumber")
	assert.Contains(t, phone.Tag.Get("gorm"), "uniqueIndex")

	email, _ := userType.FieldByName("Email")
	assert.Contains(t, email.Tag.Get("gorm"), "uniqueIndex")

	pw, _ := userType.FieldByName("PasswordHash")
	assert.Equal(t, "-", pw.Tag.Get("json"), "password hash must never be serialized")
}

func TestUserBeforeCreate_RequiresAnchor(t *testing.T) {
	user := &models.User{DisplayName: "Nobody"}

	err := user.BeforeCreate(nil)

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, user.ID)
}

func TestUserHasAnchor(t *testing.T) {
	assert.False(t, (&models.User{}).HasAnchor())
	assert.False(t, (&models.User{Email: strPtr("")}).HasAnchor())
	assert.True(t, (&models.User{Email: strPtr("x@example.com")}).HasAnchor())
	assert.True(t, (&models.User{PhoneNumber: strPtr("79001112233")}).HasAnchor())
}

func TestUserPublic_OmitsSecrets(t *testing.T) {
	u := &models.User{ID: "u1", DisplayName: "Bob", PasswordHash: "hash", PushToken: "tok"}
	p := u.Public()
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "Bob", p.DisplayName)
}
