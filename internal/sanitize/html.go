package sanitize

import (
	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all HTML tags and attributes.
	StrictPolicy = bluemonday.StrictPolicy()

	// UGCPolicy keeps basic formatting (<p>, <b>, <em>, <a>, lists) and drops
	// scripts, iframes, event handlers and style attributes.
	UGCPolicy = bluemonday.UGCPolicy()
)

// Text strips all markup. Used for event names, company names, addresses and
// short descriptions, which are displayed as plain text.
func Text(input string) string {
	return StrictPolicy.Sanitize(input)
}

// HTML keeps safe formatting. Used for long event descriptions.
func HTML(input string) string {
	return UGCPolicy.Sanitize(input)
}
