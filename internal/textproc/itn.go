package textproc

import (
	"regexp"
	"strings"
)

var (
	timePattern     = regexp.MustCompile(`(\d{1,2})[:.](\d{2})`)
	currencyPattern = regexp.MustCompile(`(\d+[.,]?\d*)\s?(บาท|฿)`)
)

// InverseNormalize applies Thai inverse text normalization: clock readings
// become hour-โมง-minute form and currency amounts normalize onto the บาท
// suffix. Other languages pass through unchanged.
func InverseNormalize(text, lang string) string {
	if text == "" || !strings.HasPrefix(lang, "th") {
		return text
	}
	text = timePattern.ReplaceAllString(text, "${1}โมง${2}")
	text = currencyPattern.ReplaceAllString(text, "${1}บาท")
	return text
}
