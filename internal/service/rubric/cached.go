package rubric

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/internal/domain"
)

type cachedSet struct {
	set       domain.RubricSet
	expiresAt time.Time
}

// CachedSource memoises sets loaded from another Source for ttl.
type CachedSource struct {
	src    Source
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]cachedSet
	now     func() time.Time
}

func NewCachedSource(src Source, ttl time.Duration, logger *zap.Logger) *CachedSource {
	return &CachedSource{
		src:     src,
		ttl:     ttl,
		logger:  logger,
		entries: make(map[string]cachedSet),
		now:     time.Now,
	}
}

func (c *CachedSource) Load(ctx context.Context, setKey string) (domain.RubricSet, error) {
	c.mu.RLock()
	entry, ok := c.entries[setKey]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.set, nil
	}

	set, err := c.src.Load(ctx, setKey)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[setKey] = cachedSet{set: set, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	c.logger.Debug("Rubric set loaded",
		zap.String("set", setKey),
		zap.Int("competencies", len(set)),
	)
	return set, nil
}
