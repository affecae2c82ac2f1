package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSignalSet_NormalizesAndDedupes(t *testing.T) {
	s := NewSignalSet([]string{" Casino", "casino", "", "AIRDROP "}, []string{"Bit.ly", "bit.ly"}, Thresholds{}, time.Hour)
	assert.Equal(t, []string{"casino", "airdrop"}, s.Keywords)
	assert.Equal(t, []string{"bit.ly"}, s.SuspiciousDomains)
}

func TestSignalSet_WithLearned(t *testing.T) {
	base := NewSignalSet([]string{"casino"}, nil, Thresholds{}, time.Hour)
	s := base.WithLearned([]string{"Moon", "casino", "moon "})

	assert.Equal(t, []string{"moon"}, s.Learned)
	assert.Nil(t, base.Learned, "the base set is not modified")
}

func TestFormatWindow(t *testing.T) {
	assert.Equal(t, "2 minutes", FormatWindow(120*time.Second))
	assert.Equal(t, "1 hour", FormatWindow(time.Hour))
	assert.Equal(t, "7 days", FormatWindow(7*24*time.Hour))
	assert.Equal(t, "90 seconds", FormatWindow(90*time.Second))
	assert.Equal(t, "1 second", FormatWindow(time.Second))
}
