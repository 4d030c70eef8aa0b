package orchestrator

import "strings"

// metaQueryPatterns mark greetings, capability questions and other queries
// with no domain signal. These route straight to the default agent instead
// of burning a classifier call.
var metaQueryPatterns = []string{
	"what tools", "what can you", "help me", "hello", "hi ", "hey ",
	"who are you", "what are you", "introduce yourself",
	"?", "test",
}

// metaQueryMaxLen is the length under which a query is assumed to carry no
// routable intent.
const metaQueryMaxLen = 10

// IsMetaQuery reports whether the query is a greeting, capabilities
// question or similarly ambiguous input.
func IsMetaQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) < metaQueryMaxLen {
		return true
	}
	for _, pattern := range metaQueryPatterns {
		if strings.Contains(q, pattern) {
			return true
		}
	}
	return false
}
