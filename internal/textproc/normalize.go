package textproc

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	clockDigits   = regexp.MustCompile(`(\d{1,2})[.:](\d{2})`)
	smallNumber   = regexp.MustCompile(`\d{1,3}`)
)

var thaiOnes = [...]string{"ศูนย์", "หนึ่ง", "สอง", "สาม", "สี่", "ห้า", "หก", "เจ็ด", "แปด", "เก้า"}

var thaiTens = [...]string{"", "สิบ", "ยี่สิบ", "สามสิบ", "สี่สิบ", "ห้าสิบ", "หกสิบ", "เจ็ดสิบ", "แปดสิบ", "เก้าสิบ"}

// Normalize collapses whitespace, applies Unicode NFC, and for Thai spells
// small digit groups out as number words (clock readings first so the
// hour/minute split survives).
func Normalize(text, lang string) string {
	normalized := norm.NFC.String(text)
	normalized = strings.TrimSpace(whitespaceRun.ReplaceAllString(normalized, " "))
	if normalized == "" || !strings.HasPrefix(lang, "th") {
		return normalized
	}

	normalized = clockDigits.ReplaceAllStringFunc(normalized, func(match string) string {
		parts := clockDigits.FindStringSubmatch(match)
		hour, _ := strconv.Atoi(parts[1])
		minute, _ := strconv.Atoi(parts[2])
		return numberToThaiWords(hour) + "โมง" + numberToThaiWords(minute)
	})
	normalized = smallNumber.ReplaceAllStringFunc(normalized, func(match string) string {
		n, err := strconv.Atoi(match)
		if err != nil {
			return match
		}
		return numberToThaiWords(n)
	})
	return normalized
}

func twoDigitThai(n int) string {
	if n < 10 {
		return thaiOnes[n]
	}
	if n == 10 {
		return "สิบ"
	}
	if n < 20 {
		if n == 11 {
			return "สิบเอ็ด"
		}
		return "สิบ" + thaiOnes[n-10]
	}
	tens, ones := n/10, n%10
	if ones == 0 {
		return thaiTens[tens]
	}
	onesWord := thaiOnes[ones]
	if ones == 1 {
		onesWord = "เอ็ด"
	}
	return thaiTens[tens] + onesWord
}

func numberToThaiWords(n int) string {
	switch {
	case n < 100:
		return twoDigitThai(n)
	case n < 1000:
		hundreds, remainder := n/100, n%100
		out := thaiOnes[hundreds] + "ร้อย"
		if remainder > 0 {
			out += twoDigitThai(remainder)
		}
		return out
	default:
		return strconv.Itoa(n)
	}
}
