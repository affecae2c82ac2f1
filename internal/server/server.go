package server

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/service"
)

const (
	seenCacheSize = 10000
	seenTTL       = 10 * time.Minute
)

// Moderator consumes normalized platform events
type Moderator interface {
	HandleEvent(ctx context.Context, ev *domain.Event) service.Decision
}

// seenSet drops redelivered events. Both platforms retry deliveries they
// consider unacknowledged.
type seenSet struct {
	cache *expirable.LRU[string, struct{}]
}

func newSeenSet() *seenSet {
	return &seenSet{cache: expirable.NewLRU[string, struct{}](seenCacheSize, nil, seenTTL)}
}

// firstTime records id and reports whether it was new
func (s *seenSet) firstTime(id string) bool {
	if id == "" {
		return true
	}
	if s.cache.Contains(id) {
		return false
	}
	s.cache.Add(id, struct{}{})
	return true
}
