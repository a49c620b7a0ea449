package sanitize

import "strings"

// ForbiddenSymbols are the quote, terminator and comment tokens rejected in
// user ids, passwords and admin codes.
var ForbiddenSymbols = []string{"'", `"`, ";", "--", "/*", "*/", "#"}

// IsClean reports whether text contains none of ForbiddenSymbols.
//
// This is a textual blacklist, not an escaping layer. The store is a
// key-value tree with no query language, so it mainly keeps odd characters
// out of record keys.
func IsClean(text string) bool {
	for _, symbol := range ForbiddenSymbols {
		if strings.Contains(text, symbol) {
			return false
		}
	}
	return true
}
