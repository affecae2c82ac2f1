package domain

import (
	"strings"
	"time"
)

// Thresholds holds the numeric knobs of the spam scorer
type Thresholds struct {
	KeywordDefault   int // keyword matches needed for an established member
	KeywordNewMember int // keyword matches needed inside the new-member window
	KeywordWithMedia int // keyword matches needed when the message carries media
	Emoji            int // emoji count that must be exceeded, combined with a link
	SpamCutoff       int // total score at which a message is spam
}

// SignalSet is the immutable rule profile the scorer evaluates against.
// A new profile replaces the old one as a whole.
type SignalSet struct {
	Keywords          []string
	SuspiciousDomains []string
	Thresholds        Thresholds
	NewMemberWindow   time.Duration

	// Learned holds active operator keywords merged in at evaluation time
	Learned []string
}

// NewSignalSet builds a signal set with keywords and domains lowercased,
// trimmed and deduplicated while keeping their first-seen order.
func NewSignalSet(keywords, domains []string, th Thresholds, window time.Duration) *SignalSet {
	return &SignalSet{
		Keywords:          dedupeLower(keywords),
		SuspiciousDomains: dedupeLower(domains),
		Thresholds:        th,
		NewMemberWindow:   window,
	}
}

// WithLearned returns a copy of the set carrying the given learned keywords.
// Learned keywords already present in the static list are dropped.
func (s *SignalSet) WithLearned(learned []string) *SignalSet {
	cp := *s
	static := make(map[string]struct{}, len(s.Keywords))
	for _, kw := range s.Keywords {
		static[kw] = struct{}{}
	}
	cp.Learned = nil
	for _, kw := range dedupeLower(learned) {
		if _, ok := static[kw]; ok {
			continue
		}
		cp.Learned = append(cp.Learned, kw)
	}
	return &cp
}

// NormalizeKeyword is the canonical form used for every keyword comparison
func NormalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func dedupeLower(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = NormalizeKeyword(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
