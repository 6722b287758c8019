package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/pkg/errors"
	"github.com/kapu/sales-skills-engine/pkg/metrics"
)

// Service stores JSON documents on top of a Store. Store failures never reach
// callers: a failed read is a miss and a failed write is logged.
type Service struct {
	store   Store
	keys    Keys
	logger  *zap.Logger
	metrics *metrics.Manager
}

func NewService(store Store, keys Keys, logger *zap.Logger, m *metrics.Manager) *Service {
	return &Service{
		store:   store,
		keys:    keys,
		logger:  logger,
		metrics: m,
	}
}

func (s *Service) Keys() Keys {
	return s.keys
}

// GetJSON decodes the entry at key into dest and reports whether it was found.
// Undecodable entries count as misses.
func (s *Service) GetJSON(ctx context.Context, key string, dest any) bool {
	ns := namespaceOf(key)

	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Cache get failed, treating as miss", zap.String("key", key), zap.Error(err))
		s.metrics.RecordCacheLookup(ns, metrics.CacheError)
		return false
	}
	if !ok || len(raw) == 0 {
		s.metrics.RecordCacheLookup(ns, metrics.CacheMiss)
		return false
	}

	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			s.logger.Warn("Cache unmarshal failed, treating as miss",
				zap.String("key", key),
				zap.Error(errors.NewCacheError("unmarshal failed", "get", key, err)),
			)
			s.metrics.RecordCacheLookup(ns, metrics.CacheError)
			return false
		}
	}

	s.metrics.RecordCacheLookup(ns, metrics.CacheHit)
	return true
}

// Exists is a read-only presence check.
func (s *Service) Exists(ctx context.Context, key string) bool {
	var raw json.RawMessage
	return s.GetJSON(ctx, key, &raw)
}

// PutJSON writes value under key. Concurrent writers to the same key are not
// coordinated; the last write wins.
func (s *Service) PutJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	ns := namespaceOf(key)

	data, err := json.Marshal(value)
	if err != nil {
		cerr := errors.NewCacheError("marshal failed", "set", key, err)
		s.metrics.RecordCacheWrite(ns, cerr)
		return cerr
	}

	err = s.store.Set(ctx, key, data, ttl)
	s.metrics.RecordCacheWrite(ns, err)
	if err != nil {
		s.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) Close() error {
	return s.store.Close()
}

// namespaceOf pulls "assessment" out of "v1:assessment:<hash>".
func namespaceOf(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) == 3 {
		return parts[1]
	}
	return "unknown"
}
