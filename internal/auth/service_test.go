package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/auth"
	"relaychat/backend/internal/storage/storagetest"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, phone, text string) error {
	args := m.Called(ctx, phone, text)
	return args.Error(0)
}

// lastCode extracts the code from the most recent Send call.
func (m *MockSender) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.Calls)
	text := m.Calls[len(m.Calls)-1].Arguments.String(2)
	fields := strings.Fields(text)
	return fields[len(fields)-1]
}

func newService(t *testing.T, opts auth.Options) (*auth.Service, *storagetest.Memory, *MockSender) {
	t.Helper()
	store := storagetest.New()
	sender := new(MockSender)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return auth.NewService(store, store, sender, tokens, opts, nil), store, sender
}

func TestSendAndVerifyOTP_CreatesUserOnce(t *testing.T) {
	svc, store, sender := newService(t, auth.Options{})
	ctx := context.Background()
	sender.On("Send", mock.Anything, "79161234567", mock.AnythingOfType("string")).Return(nil)

	guest, err := svc.SendOTP(ctx, "+7 (916) 123-45-67")
	require.NoError(t, err)
	assert.False(t, guest)
	code := sender.lastCode(t)
	assert.Len(t, code, 4)

	session, err := svc.VerifyOTP(ctx, "+7 (916) 123-45-67", code, "Alice")
	require.NoError(t, err)
	require.NotNil(t, session.User)
	assert.Equal(t, "Alice", session.User.DisplayName)
	assert.Equal(t, "79161234567", *session.User.PhoneNumber)

	userID, err := svc.Authenticate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, userID)

	// The code is one-time.
	_, err = svc.VerifyOTP(ctx, "+7 (916) 123-45-67", code, "")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	// A second login with the 8-prefixed spelling finds the same account.
	_, err = svc.SendOTP(ctx, "89161234567")
	require.NoError(t, err)
	again, err := svc.VerifyOTP(ctx, "89161234567", sender.lastCode(t), "")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, again.User.ID)

	n, err := store.CountUsers(ctx, []string{session.User.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	svc, _, sender := newService(t, auth.Options{})
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.SendOTP(context.Background(), "79161234567")
	require.NoError(t, err)

	wrong := "0000"
	if sender.lastCode(t) == wrong {
		wrong = "1111"
	}
	_, err = svc.VerifyOTP(context.Background(), "79161234567", wrong, "")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	// A wrong guess leaves the real code usable.
	_, err = svc.VerifyOTP(context.Background(), "79161234567", sender.lastCode(t), "")
	assert.NoError(t, err)
}

func TestVerifyOTP_ConcurrentSameCodeSucceedsOnce(t *testing.T) {
	svc, _, sender := newService(t, auth.Options{})
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.SendOTP(context.Background(), "+7 916 123 45 67")
	require.NoError(t, err)
	code := sender.lastCode(t)

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			phone := "+7 916 123 45 67"
			if i%2 == 1 {
				phone = "89161234567"
			}
			_, results[i] = svc.VerifyOTP(context.Background(), phone, code, "")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
		}
	}
	assert.Equal(t, 1, successes)
}

func TestVerifyOTP_ExpiredCode(t *testing.T) {
	svc, store, sender := newService(t, auth.Options{OTPTTL: time.Minute})
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.SendOTP(context.Background(), "79161234567")
	require.NoError(t, err)
	code := sender.lastCode(t)

	store.Now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.VerifyOTP(context.Background(), "79161234567", code, "")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestSendOTP_Validation(t *testing.T) {
	svc, _, sender := newService(t, auth.Options{})

	_, err := svc.SendOTP(context.Background(), "  ")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.SendOTP(context.Background(), "12345")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendOTP_UpstreamFailure(t *testing.T) {
	svc, _, sender := newService(t, auth.Options{})
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).
		Return(apperr.Upstream("sms.failed", "sms gateway rejected the request", errors.New("boom")))

	_, err := svc.SendOTP(context.Background(), "79161234567")
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
}

func TestSendOTP_StoreFailure(t *testing.T) {
	svc, store, sender := newService(t, auth.Options{})
	store.FailOn("SaveOTP", errors.New("redis down"))

	_, err := svc.SendOTP(context.Background(), "79161234567")
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestGuestLogin(t *testing.T) {
	svc, _, sender := newService(t, auth.Options{GuestEnabled: true})

	guest, err := svc.SendOTP(context.Background(), "1111111111")
	require.NoError(t, err)
	assert.True(t, guest)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)

	session, err := svc.VerifyOTP(context.Background(), "1111111111", "0000", "")
	require.NoError(t, err)
	assert.Equal(t, "Guest", session.User.DisplayName)
}

func TestGuestLoginDisabled(t *testing.T) {
	svc, _, _ := newService(t, auth.Options{})

	_, err := svc.VerifyOTP(context.Background(), "1111111111", "0000", "")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestVerifyOTP_TestCode(t *testing.T) {
	svc, _, _ := newService(t, auth.Options{TestCode: "1234"})

	session, err := svc.VerifyOTP(context.Background(), "79990000000", "1234", "")
	require.NoError(t, err)
	assert.Equal(t, "79990000000", session.User.DisplayName)
}

func TestVerifyOTP_ConcurrentFirstLogin(t *testing.T) {
	svc, _, _ := newService(t, auth.Options{TestCode: "1234"})

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := svc.VerifyOTP(context.Background(), "79990000000", "1234", "")
			if assert.NoError(t, err) {
				ids[i] = s.User.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestRegisterEmail(t *testing.T) {
	svc, _, _ := newService(t, auth.Options{})
	ctx := context.Background()

	session, err := svc.RegisterEmail(ctx, "  Bob@Example.com ", "secret1", "")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", *session.User.Email)
	assert.Equal(t, "bob", session.User.DisplayName)

	_, err = svc.RegisterEmail(ctx, "BOB@example.COM", "another1", "Bobby")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestRegisterEmail_Validation(t *testing.T) {
	svc, _, _ := newService(t, auth.Options{})

	_, err := svc.RegisterEmail(context.Background(), "not-an-email", "secret1", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.RegisterEmail(context.Background(), "a@b.io", "123", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestLoginEmail(t *testing.T) {
	svc, _, _ := newService(t, auth.Options{})
	ctx := context.Background()
	reg, err := svc.RegisterEmail(ctx, "carol@example.com", "secret1", "Carol")
	require.NoError(t, err)

	session, err := svc.LoginEmail(ctx, " CAROL@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, session.User.ID)

	_, err = svc.LoginEmail(ctx, "carol@example.com", "wrong-password")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = svc.LoginEmail(ctx, "nobody@example.com", "secret1")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}
