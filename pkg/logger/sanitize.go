package logger

import (
	"strings"
	"unicode/utf8"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@*******.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := maskTail(parts[0])
	domain := parts[1]

	// Mask domain: keep TLD, mask the rest
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", utf8.RuneCountInString(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// MaskIdentifier masks a login identifier, which may be an email or a username
func MaskIdentifier(identifier string) string {
	if identifier == "" {
		return ""
	}
	if strings.Count(identifier, "@") == 1 {
		return SanitizedEmail(identifier)
	}
	return maskTail(identifier)
}

// maskTail keeps the first rune and masks the rest
func maskTail(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(r) + strings.Repeat("*", utf8.RuneCountInString(s[size:]))
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := map[string]bool{
		"password":   true,
		"token":      true,
		"secret":     true,
		"email":      true,
		"username":   true,
		"identifier": true,
		"auth":       true,
	}

	query := strings.ToLower(rawQuery)
	for param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
