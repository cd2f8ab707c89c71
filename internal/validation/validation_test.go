package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/models"
	"relaychat/backend/internal/validation"
)

func TestStruct_ReportsWireFieldName(t *testing.T) {
	err := validation.Struct(models.SendMessageRequest{Text: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Contains(t, apperr.From(err).Message, "chatId")
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, validation.Struct(models.CallRequest{To: "u2", ChannelName: "ch", Type: "video"}))
}

func TestStruct_GroupCallNeedsParticipants(t *testing.T) {
	err := validation.Struct(models.GroupCallRequest{ChannelName: "ch", Type: "audio"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	err = validation.Struct(models.GroupCallRequest{Participants: []string{""}, ChannelName: "ch", Type: "audio"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestVar_Email(t *testing.T) {
	assert.NoError(t, validation.Var("a@b.io", "required,email"))
	assert.Error(t, validation.Var("not-an-email", "required,email"))
}
