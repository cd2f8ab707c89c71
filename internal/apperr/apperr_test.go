package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"relaychat/backend/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIs_MatchesByKind(t *testing.T) {
	err := apperr.Forbidden("message.not_sender", "only the sender can delete a message")
	wrapped := fmt.Errorf("delete: %w", err)

	assert.True(t, errors.Is(wrapped, apperr.ErrForbidden))
	assert.False(t, errors.Is(wrapped, apperr.ErrNotFound))
}

func TestFrom_WrapsUnknownAsStore(t *testing.T) {
	cause := errors.New("connection reset")
	e := apperr.From(cause)

	assert.Equal(t, apperr.KindStore, e.Kind)
	assert.ErrorIs(t, e, cause)
	assert.Equal(t, http.StatusInternalServerError, e.Kind.HTTPStatus())
}

func TestKind_StatusAndName(t *testing.T) {
	cases := []struct {
		kind   apperr.Kind
		status int
		name   string
	}{
		{apperr.KindValidation, http.StatusBadRequest, "ValidationError"},
		{apperr.KindUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{apperr.KindForbidden, http.StatusForbidden, "Forbidden"},
		{apperr.KindNotFound, http.StatusNotFound, "NotFound"},
		{apperr.KindConflict, http.StatusConflict, "Conflict"},
		{apperr.KindStore, http.StatusInternalServerError, "StoreError"},
		{apperr.KindUpstream, http.StatusBadGateway, "UpstreamError"},
		{apperr.KindRateLimited, http.StatusTooManyRequests, "RateLimited"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.kind.HTTPStatus())
		assert.Equal(t, tc.name, tc.kind.String())
	}
}
