package usecase

import (
	"time"

	"github.com/devricklin/chatguard/internal/biz/domain"
)

// AllowsMedia reports whether a member may post bare media at now.
// Unknown members count as joining at now, so they are blocked.
func AllowsMedia(rec *domain.MemberRecord, now time.Time, signals *domain.SignalSet) bool {
	if signals == nil {
		return false
	}
	joinedAt := now
	if rec != nil {
		joinedAt = rec.JoinedAt
	}
	return now.Sub(joinedAt) >= signals.NewMemberWindow
}

// IsNewMember reports whether a member is still inside the new-member window
func IsNewMember(rec *domain.MemberRecord, now time.Time, signals *domain.SignalSet) bool {
	return !AllowsMedia(rec, now, signals)
}
