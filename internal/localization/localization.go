// Package localization provides translated client-facing messages.
// Translations are JSON files named with the language code (e.g. "en.json")
// embedded into the binary.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"relaychat/backend/internal/apperr"
)

// DefaultLanguage is used when a key is missing in the requested language.
const DefaultLanguage = "en"

//go:embed *.json
var bundled embed.FS

// Localizer holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// NewLocalizer loads every *.json file from fsys.
func NewLocalizer(fsys fs.FS) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
	}

	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[lang] = translations
	}

	return l, nil
}

// Bundled returns a Localizer over the translations compiled into the binary.
func Bundled() *Localizer {
	l, err := NewLocalizer(bundled)
	if err != nil {
		// the embedded files are part of the build
		panic(err)
	}
	return l
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, it returns the key itself as a fallback.
func (l *Localizer) GetString(lang, key string) string {
	if s, ok := l.Lookup(lang, key); ok {
		return s
	}
	return key
}

// Lookup is GetString with an explicit found flag.
func (l *Localizer) Lookup(lang, key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value, true
		}
	}

	if lang != DefaultLanguage {
		if enTranslations, ok := l.translations[DefaultLanguage]; ok {
			if value, ok := enTranslations[key]; ok {
				return value, true
			}
		}
	}

	return "", false
}

// Languages lists the loaded language codes.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	langs := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		langs = append(langs, lang)
	}
	return langs
}

// PreferredLanguage picks the first language from an Accept-Language header
// that the localizer knows, or DefaultLanguage.
func (l *Localizer) PreferredLanguage(header string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if _, ok := l.translations[base]; ok {
			return base
		}
	}
	return DefaultLanguage
}

// ErrorMessage returns the client-facing text for an application error.
// Generic validation failures keep their field detail appended.
func (l *Localizer) ErrorMessage(lang string, e *apperr.Error) string {
	text, ok := l.Lookup(lang, e.Key)
	if !ok {
		return e.Message
	}
	if e.Key == "error.validation" && e.Message != "" {
		return fmt.Sprintf("%s (%s)", text, e.Message)
	}
	return text
}
