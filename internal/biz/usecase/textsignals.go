package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// matches explicit URLs and bare host names such as "example.com"
var urlPattern = regexp.MustCompile(`(?i)https?://[^\s]+|(?:www\.)?[a-z0-9-]+\.[a-z]{2,}`)

const (
	capsMinLength  = 10
	capsMinLetters = 5
	capsMaxRatio   = 0.6
	repeatMinRun   = 5
)

// sanitizeText drops invalid UTF-8 so every later pass sees well-formed runes
func sanitizeText(text string) string {
	return strings.ToValidUTF8(text, "")
}

// foldText is the form keywords and domains are matched against.
// NFKC folds full-width and compatibility letters onto their plain forms.
func foldText(text string) string {
	return strings.ToLower(norm.NFKC.String(text))
}

func hasURL(text string) bool {
	return urlPattern.MatchString(text)
}

// countEmoji counts grapheme clusters that start with an emoji code point,
// so a flag or a skin-toned emoji counts once.
func countEmoji(text string) int {
	n := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		runes := g.Runes()
		if len(runes) > 0 && isEmojiRune(runes[0]) {
			n++
		}
	}
	return n
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, emoticons, transport, supplemental
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2B05 && r <= 0x2B55:
		return true
	}
	return false
}

func hasExcessiveCaps(text string) bool {
	runes := []rune(text)
	if len(runes) < capsMinLength {
		return false
	}
	letters, upper := 0, 0
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters < capsMinLetters {
		return false
	}
	return float64(upper)/float64(letters) > capsMaxRatio
}

// hasRepeatedRun reports whether any rune appears minRun or more times in a row
func hasRepeatedRun(text string, minRun int) bool {
	var prev rune
	run := 0
	for i, r := range text {
		if i > 0 && r == prev && r != '\n' {
			run++
		} else {
			run = 1
		}
		if run >= minRun {
			return true
		}
		prev = r
	}
	return false
}
