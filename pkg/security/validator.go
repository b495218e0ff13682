package security

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

const (
	// MaxSearchQueryLength defines the maximum allowed length for search queries
	MaxSearchQueryLength = 100

	// LikeEscapeChar is the escape character used with `LIKE ? ESCAPE '!'`.
	// A backslash would need different quoting in MySQL than in Postgres and SQLite.
	LikeEscapeChar = "!"
)

var (
	// ErrQueryTooLong is returned for queries longer than MaxSearchQueryLength
	ErrQueryTooLong = errors.New("search query too long")
	// ErrInvalidCharacters is returned for queries containing disallowed input
	ErrInvalidCharacters = errors.New("search query contains invalid characters")
)

// dangerousPatterns contains regex patterns that could indicate SQL injection attempts
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop|create|alter|exec|execute)\b`),
	regexp.MustCompile(`(?i)\b(or|and)\s+\d+\s*=\s*\d+`),
	regexp.MustCompile(`(?i)(--|/\*|\*/)`),
	regexp.MustCompile(`(?i)\b(waitfor|benchmark|sleep)\b`),
	regexp.MustCompile(`(?i)(<script|</script|javascript:|vbscript:|onload=|onerror=)`),
}

// ValidateSearchQuery validates a free-text search query and returns it trimmed
func ValidateSearchQuery(query string) (string, error) {
	if query == "" {
		return "", nil
	}

	if len(query) > MaxSearchQueryLength {
		return "", ErrQueryTooLong
	}

	query = strings.TrimSpace(query)

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(query) {
			return "", ErrInvalidCharacters
		}
	}

	for _, char := range query {
		if !isValidSearchChar(char) {
			return "", ErrInvalidCharacters
		}
	}

	return query, nil
}

// isValidSearchChar checks if a character is safe for search queries
func isValidSearchChar(char rune) bool {
	return unicode.IsLetter(char) || unicode.IsNumber(char) ||
		char == ' ' || char == '-' || char == '_' || char == '.' ||
		char == '@' || char == '+' || char == '%'
}

// EscapeLike escapes LIKE wildcards so the query matches literally.
// Use together with `ESCAPE '!'`.
func EscapeLike(query string) string {
	if query == "" {
		return ""
	}

	query = strings.ReplaceAll(query, LikeEscapeChar, LikeEscapeChar+LikeEscapeChar)
	query = strings.ReplaceAll(query, "%", LikeEscapeChar+"%")
	query = strings.ReplaceAll(query, "_", LikeEscapeChar+"_")

	return query
}
