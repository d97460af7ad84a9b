package textproc

import (
	"regexp"
	"strings"
)

var sentenceBoundary = regexp.MustCompile(`(?:[.!?])\s+`)

// RestorePunctuation finishes punctuation per language. English gains a
// terminal period when missing; Thai keeps its light punctuation and only
// tidies sentence spacing.
func RestorePunctuation(text, lang string) string {
	if text == "" {
		return text
	}
	if strings.HasPrefix(lang, "en") {
		return restoreEnglish(text)
	}
	return restoreThai(text)
}

func restoreEnglish(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}
	last := text[len(text)-1]
	if last != '.' && last != '!' && last != '?' {
		text += "."
	}
	return text
}

func restoreThai(text string) string {
	var sentences []string
	rest := text
	for {
		loc := sentenceBoundary.FindStringIndex(rest)
		if loc == nil {
			break
		}
		sentences = append(sentences, strings.TrimSpace(rest[:loc[0]+1]))
		rest = rest[loc[1]:]
	}
	if trimmed := strings.TrimSpace(rest); trimmed != "" {
		sentences = append(sentences, trimmed)
	}
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	return strings.Join(sentences, " ")
}
