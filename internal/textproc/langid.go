package textproc

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// SupportedLanguages maps the language codes the postprocessors understand.
var SupportedLanguages = map[string]string{
	"th": "thai",
	"lo": "lao",
	"en": "english",
}

var latinLetters = regexp.MustCompile(`[a-z]`)

// Lao-leaning markers that appear in Thai-script transcriptions.
var laoMarkers = []string{"ซำ", "บ่", "เด้อ"}

// DetectLanguage resolves a segment's language. A caller-supplied hint wins
// outright; otherwise script heuristics decide, defaulting to Thai.
func DetectLanguage(text, hint string) string {
	if hint != "" && hint != "auto" {
		return canonicalLanguage(hint)
	}
	cleaned := strings.ToLower(strings.TrimSpace(text))
	if cleaned == "" {
		return "th"
	}
	if latinLetters.MatchString(cleaned) {
		return "en"
	}
	for _, marker := range laoMarkers {
		if strings.Contains(cleaned, marker) {
			return "lo"
		}
	}
	return "th"
}

// canonicalLanguage reduces a hint like "th-TH" or "eng" to its base code.
func canonicalLanguage(hint string) string {
	tag, err := language.Parse(hint)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(hint))
	}
	base, _ := tag.Base()
	return base.String()
}
