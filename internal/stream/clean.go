package stream

import "strings"

// Reasoning delimiter pair emitted by thinking-capable models.
const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// Section headers after which a reply tends to restate itself. The
// first coherent answer passage is everything before the earliest one.
var answerHeaders = []string{"Answer:", "Final Answer"}

// CleanContent normalizes one content payload from the upstream model:
// the reasoning preamble between the delimiter pair is removed (only
// the text after the closing marker survives), and the text is
// truncated at the first answer-section header so the reply is not
// repeated. The result is whitespace-trimmed.
func CleanContent(s string) string {
	if i := strings.Index(s, thinkClose); i >= 0 && strings.Contains(s[:i], thinkOpen) {
		s = s[i+len(thinkClose):]
	}
	s = strings.TrimSpace(s)

	cut := -1
	for _, h := range answerHeaders {
		// Index 0 means the reply opens with the header; cutting there
		// would drop the whole answer.
		if i := strings.Index(s, h); i > 0 && (cut == -1 || i < cut) {
			cut = i
		}
	}
	if cut > 0 {
		s = strings.TrimSpace(s[:cut])
	}

	return s
}
