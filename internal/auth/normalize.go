package auth

import (
	"strings"
	"unicode"

	"relaychat/backend/internal/validation"
)

// NormalizePhone reduces a phone number to the 11-digit 7XXXXXXXXXX form
// used as the stored anchor and as the SMS recipient.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	if strings.HasPrefix(digits, "8") {
		digits = "7" + digits[1:]
	}
	if len(digits) == 10 && !strings.HasPrefix(digits, "7") {
		digits = "7" + digits
	}
	return digits
}

// ValidPhone reports whether a normalized number is dialable.
func ValidPhone(normalized string) bool {
	return len(normalized) == 11 && strings.HasPrefix(normalized, "7")
}

// NormalizeEmail trims and lowercases so uniqueness ignores case and whitespace.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidEmail(normalized string) bool {
	return validation.Var(normalized, "required,email") == nil
}

// defaultDisplayName is the local part of an email address.
func defaultDisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
