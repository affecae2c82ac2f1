package domain

import "time"

// LearnedKeyword is an operator-added spam term with its provenance.
// Entries are deactivated, never deleted.
type LearnedKeyword struct {
	ID            int64
	Keyword       string
	Category      string
	AddedBy       string
	AddedAt       time.Time
	SourceExcerpt string
	Active        bool
}
