package util

import (
	"strings"
	"time"
	"unicode"
)

// Slugify lowercases the parts, joins them with dashes, and strips anything
// that is not alphanumeric or a dash.
func Slugify(parts ...string) string {
	joined := strings.ToLower(strings.Join(parts, " "))

	var b strings.Builder
	lastDash := true
	for _, r := range joined {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}

	return strings.Trim(b.String(), "-")
}

// UniqueSlug appends a timestamp so repeated titles never collide.
func UniqueSlug(parts ...string) string {
	return Slugify(parts...) + "-" + time.Now().Format("0601021504")
}
