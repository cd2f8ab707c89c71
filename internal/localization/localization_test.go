package localization_test

import (
	"encoding/json"
	"os"
	"testing"
	"testing/fstest"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/localization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetString_FallsBackToEnglishThenKey(t *testing.T) {
	fsys := fstest.MapFS{
		"en.json": {Data: []byte(`{"greeting":"Hello","bye":"Bye"}`)},
		"ru.json": {Data: []byte(`{"greeting":"Привет"}`)},
	}
	l, err := localization.NewLocalizer(fsys)
	require.NoError(t, err)

	assert.Equal(t, "Привет", l.GetString("ru", "greeting"))
	assert.Equal(t, "Bye", l.GetString("ru", "bye"))
	assert.Equal(t, "missing.key", l.GetString("ru", "missing.key"))
}

func TestPreferredLanguage(t *testing.T) {
	l := localization.Bundled()

	assert.Equal(t, "ru", l.PreferredLanguage("ru-RU,ru;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", l.PreferredLanguage("de-DE,fr;q=0.5"))
	assert.Equal(t, "en", l.PreferredLanguage(""))
}

// TestBundled_SameKeys keeps the translation files in sync.
func TestBundled_SameKeys(t *testing.T) {
	read := func(name string) map[string]string {
		data, err := os.ReadFile(name)
		require.NoError(t, err)
		var m map[string]string
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}
	en, ru := read("en.json"), read("ru.json")
	for k := range en {
		assert.Contains(t, ru, k)
	}
	for k := range ru {
		assert.Contains(t, en, k)
	}
}

func TestErrorMessage(t *testing.T) {
	l := localization.Bundled()

	forbidden := apperr.Forbidden("group.admin_only", "only the group admin can do this")
	assert.Equal(t, "Only the group administrator can do this.", l.ErrorMessage("en", forbidden))
	assert.NotEqual(t, l.ErrorMessage("en", forbidden), l.ErrorMessage("ru", forbidden))

	unknown := apperr.NotFound("no.such.key", "raw message")
	assert.Equal(t, "raw message", l.ErrorMessage("en", unknown))

	invalid := apperr.Validation("error.validation", "chatId failed required")
	assert.Equal(t, "The request is invalid. (chatId failed required)", l.ErrorMessage("en", invalid))
}
