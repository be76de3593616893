package engine

import "strings"

// DefaultKeywords are the words that trigger a shuffle when they appear in
// a chat message.
var DefaultKeywords = []string{"change", "swap", "shift", "switch", "trade"}

// ContainsAny reports whether text contains any of the keywords as a
// substring. When caseSensitive is false, text and keywords are folded to
// lower case before matching.
func ContainsAny(text string, keywords []string, caseSensitive bool) bool {
	if !caseSensitive {
		text = strings.ToLower(text)
	}
	for _, kw := range keywords {
		if !caseSensitive {
			kw = strings.ToLower(kw)
		}
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
