package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// blendCodes are yarn abbreviations shown upper-case.
var blendCodes = map[string]bool{
	"pc":  true,
	"cvc": true,
	"pv":  true,
	"pp":  true,
	"ne":  true,
	"tc":  true,
	"ctn": true,
}

// NormalizeYarnType returns the grouping key for a yarn type: trimmed,
// inner whitespace collapsed, lower-cased. It is idempotent.
func NormalizeYarnType(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// DisplayYarnType renders a normalized key for humans. Blend codes are
// upper-cased, other words title-cased. Never use the result as a key.
func DisplayYarnType(key string) string {
	words := strings.Fields(NormalizeYarnType(key))
	if len(words) == 0 {
		return "Unspecified"
	}
	for i, w := range words {
		if blendCodes[w] {
			words[i] = strings.ToUpper(w)
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
