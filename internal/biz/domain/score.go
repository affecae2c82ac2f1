package domain

import "strings"

// ScoreResult is the verdict for one message
type ScoreResult struct {
	IsSpam     bool
	TotalScore int
	Reasons    []string // in evaluation order, only signals that fired
}

// Reason joins the fired signals for logs and notices
func (r *ScoreResult) Reason() string {
	return strings.Join(r.Reasons, " | ")
}
