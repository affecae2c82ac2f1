package domain

import (
	"fmt"
	"time"
)

// Challenge is one question/answer pair of the join check
type Challenge struct {
	Question string
	Answer   string
}

// VerificationPolicy configures the join check
type VerificationPolicy struct {
	Timeout     time.Duration
	MaxAttempts int
	Challenges  []Challenge
}

// PendingVerification is the state of a member in the CHALLENGED state
type PendingVerification struct {
	ChatID          string
	UserID          string
	Username        string
	Challenge       Challenge
	IssuedAt        time.Time
	Attempts        int
	PromptMessageID string

	// Instance changes whenever a challenge is issued or reissued, so a timer
	// armed for an older challenge can tell it no longer applies.
	Instance uint64
}

// Key returns the member key of the pending entry
func (p *PendingVerification) Key() MemberKey {
	return MemberKey{ChatID: p.ChatID, UserID: p.UserID}
}

// VerificationOutcome is how a challenge ended
type VerificationOutcome string

const (
	OutcomeVerified VerificationOutcome = "verified"
	OutcomeFailed   VerificationOutcome = "failed"
	OutcomeTimeout  VerificationOutcome = "timeout"
)

// FormatWindow renders a duration for chat notices, e.g. "2 minutes"
func FormatWindow(d time.Duration) string {
	unit := func(n int64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return unit(int64(d/(24*time.Hour)), "day")
	case d >= time.Hour && d%time.Hour == 0:
		return unit(int64(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return unit(int64(d/time.Minute), "minute")
	default:
		return unit(int64(d.Round(time.Second)/time.Second), "second")
	}
}
