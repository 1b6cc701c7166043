package assistant

import "strings"

// TruncateToLastSentence trims text and drops whatever follows its last
// sentence terminator. Text without a terminator is returned trimmed.
func TruncateToLastSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.LastIndexAny(text, ".!?"); i >= 0 {
		return strings.TrimSpace(text[:i+1])
	}
	return text
}
