package conversation

import (
	"regexp"
	"strings"
)

var namePatterns = []*regexp.Regexp{
	// Explicit self-introductions: "my name is X", "i'm X", "call me X", ...
	regexp.MustCompile(`(?:my name is|i'?m|i am|call me|this is|it'?s)\s+([a-z][a-z\s]{1,30})`),
	// Bare one-word reply to "what's your name?".
	regexp.MustCompile(`^([a-z][a-z]{1,20})$`),
}

// nameStopWords are conversational fillers and booking verbs that look like a
// one-word name but never are.
var nameStopWords = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "yes": {}, "no": {}, "okay": {}, "ok": {},
	"sure": {}, "thanks": {}, "thank": {}, "please": {}, "good": {}, "fine": {},
	"great": {}, "nice": {}, "morning": {}, "evening": {}, "afternoon": {},
	"book": {}, "appointment": {}, "help": {}, "need": {}, "want": {},
	"can": {}, "could": {}, "would": {}, "my": {},
}

// ExtractName pulls a self-introduced personal name out of a message. It never
// fails loudly: the second return is false whenever there is no confident match.
func ExtractName(message string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(message))
	if len(lower) < 2 {
		return "", false
	}

	for _, re := range namePatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		candidate := strings.Fields(strings.TrimSpace(m[1]))
		if len(candidate) == 0 {
			continue
		}
		// A name is at most two words.
		if len(candidate) > 2 {
			candidate = candidate[:2]
		}
		clean := strings.Join(candidate, " ")
		if len(clean) < 2 {
			continue
		}
		if _, stopped := nameStopWords[clean]; stopped {
			continue
		}
		return capitalizeWords(clean), true
	}

	return "", false
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
