package events

import (
	"fmt"
	"strings"
	"time"

	dateparser "github.com/markusmobius/go-dateparser"
)

// DateLayout is how event dates are stored. Lexical order of stored dates is
// chronological order.
const DateLayout = "2006-01-02"

// NormalizeDate turns a human-written date ("12 March 2025", "2025/3/12",
// "next friday") into DateLayout. Values already in DateLayout pass through.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Format(DateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(DateLayout), nil
	}
	parsed, err := dateparser.Parse(nil, s)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", s, err)
	}
	if parsed.Time.IsZero() {
		return "", fmt.Errorf("parse date %q: no date found", s)
	}
	return parsed.Time.Format(DateLayout), nil
}
