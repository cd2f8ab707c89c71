package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/backend/internal/apperr"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, err := m.Issue("user-1")
	require.NoError(t, err)

	userID, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	token, err := m.Issue("user-1")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.Verify(token)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret", time.Hour).Issue("user-1")
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Hour).Verify(token)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestTokenManager_Missing(t *testing.T) {
	_, err := NewTokenManager("secret", time.Hour).Verify("")
	assert.Equal(t, "auth.token_missing", apperr.From(err).Key)
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+7 (916) 123-45-67": "79161234567",
		"89161234567":        "79161234567",
		"9161234567":         "79161234567",
		"79161234567":        "79161234567",
		"1111111111":         "71111111111",
		"123":                "123",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
	assert.True(t, ValidPhone("79161234567"))
	assert.False(t, ValidPhone("123"))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))
	assert.False(t, CheckPassword("", "secret1"))
}
