// Package redact masks contact details in chat text so booking
// participants cannot move the conversation off the platform.
package redact

import "regexp"

const (
	EmailPlaceholder = "[email hidden]"
	PhonePlaceholder = "[phone hidden]"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)

	// Seven or more digits. Up to two separators (space, dash, dot,
	// parentheses) may sit between digits, and a leading "+" or "("
	// covers country and area codes.
	phonePattern = regexp.MustCompile(`\+?\(?\d(?:[\s().\-]{0,2}\d){6,}`)

	// A phone-shaped match that is exactly a calendar date is left alone
	datePattern = regexp.MustCompile(`^(?:\d{4}[\-.]\d{1,2}[\-.]\d{1,2}|\d{1,2}[\-.]\d{1,2}[\-.]\d{4})$`)
)

// Redact replaces email-shaped substrings with EmailPlaceholder and
// phone-shaped substrings with PhonePlaceholder. Neither placeholder
// matches either pattern, so Redact(Redact(s)) == Redact(s).
func Redact(text string) string {
	text = emailPattern.ReplaceAllLiteralString(text, EmailPlaceholder)
	return phonePattern.ReplaceAllStringFunc(text, func(match string) string {
		if datePattern.MatchString(match) {
			return match
		}
		return PhonePlaceholder
	})
}

// Contains reports whether text holds anything Redact would mask
func Contains(text string) bool {
	if emailPattern.MatchString(text) {
		return true
	}
	for _, match := range phonePattern.FindAllString(text, -1) {
		if !datePattern.MatchString(match) {
			return true
		}
	}
	return false
}
