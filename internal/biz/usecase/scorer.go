package usecase

import (
	"fmt"
	"strings"

	"github.com/devricklin/chatguard/internal/biz/domain"
)

// Signal weights
const (
	weightSuspiciousDomain = 50
	weightKeywordBase      = 30
	weightKeywordEach      = 5
	weightEmojiWithLink    = 25
	weightExcessiveCaps    = 15
	weightRepeatedChars    = 10
	weightNewMember        = 20
	weightMediaKeywords    = 20

	maxReasonDomains  = 2
	maxReasonKeywords = 3

	// learned keyword matches carry this suffix in reasons
	learnedMarker = "*"
)

// Evaluate scores one message against the signal set.
//
// Whitelisted senders and empty texts always score zero. Whitespace is
// text like any other. Each remaining
// signal adds to the total independently and the message is spam once the
// total reaches the cutoff. A suspicious domain makes the message spam on
// its own.
func Evaluate(text string, hasMedia, isNewMember, isWhitelisted bool, signals *domain.SignalSet) domain.ScoreResult {
	var res domain.ScoreResult
	if isWhitelisted || signals == nil {
		return res
	}
	text = sanitizeText(text)
	if text == "" {
		return res
	}

	folded := foldText(text)
	th := signals.Thresholds

	add := func(points int, reason string) {
		res.TotalScore += points
		res.Reasons = append(res.Reasons, reason)
	}

	domains := matchAll(folded, signals.SuspiciousDomains)
	if len(domains) > 0 {
		add(weightSuspiciousDomain, "suspicious domain: "+strings.Join(head(domains, maxReasonDomains), ", "))
	}

	keywords := matchKeywords(folded, signals)
	if n := len(keywords); n > 0 && n >= keywordThreshold(th, hasMedia, isNewMember) {
		add(weightKeywordBase+weightKeywordEach*n,
			fmt.Sprintf("spam keywords (%d): %s", n, strings.Join(head(keywords, maxReasonKeywords), ", ")))
	}

	link := hasURL(folded)
	if emoji := countEmoji(text); emoji > th.Emoji && link {
		add(weightEmojiWithLink, fmt.Sprintf("too many emoji (%d) with link", emoji))
	}

	if hasExcessiveCaps(text) {
		add(weightExcessiveCaps, "excessive capitals")
	}

	if hasRepeatedRun(text, repeatMinRun) {
		add(weightRepeatedChars, "repeated characters")
	}

	if isNewMember && (len(keywords) > 0 || link) {
		add(weightNewMember, "new member with suspicious content")
	}

	if hasMedia && len(keywords) >= 2 {
		add(weightMediaKeywords, "media with spam keywords")
	}

	res.IsSpam = res.TotalScore >= th.SpamCutoff || len(domains) > 0
	return res
}

// keywordThreshold picks the tightest applicable keyword count:
// media first, then new member, then the default.
func keywordThreshold(th domain.Thresholds, hasMedia, isNewMember bool) int {
	switch {
	case hasMedia:
		return th.KeywordWithMedia
	case isNewMember:
		return th.KeywordNewMember
	default:
		return th.KeywordDefault
	}
}

func matchKeywords(folded string, signals *domain.SignalSet) []string {
	found := matchAll(folded, signals.Keywords)
	for _, kw := range matchAll(folded, signals.Learned) {
		found = append(found, kw+learnedMarker)
	}
	return found
}

func matchAll(folded string, needles []string) []string {
	var found []string
	for _, n := range needles {
		if n != "" && strings.Contains(folded, n) {
			found = append(found, n)
		}
	}
	return found
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
