package utils

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// GenerateRequestID generates a unique request ID for tracking a single
// HTTP request through logging and error responses.
func GenerateRequestID() string {
	return uuid.New().String()
}

// FormatDuration formats a duration to a human-readable string, used by
// C13's monitor snapshots and cycle logging.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}
	if d < time.Minute {
		return d.Round(10 * time.Millisecond).String()
	}
	if d < time.Hour {
		return d.Round(time.Second).String()
	}
	return d.Round(time.Minute).String()
}

// FindRegexMatch finds the first match of a regex pattern in text, used by
// the CAPTCHA solver to pull site keys out of challenge page HTML.
func FindRegexMatch(text, pattern string) []string {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	return re.FindStringSubmatch(text)
}
