package assessment

import (
	"context"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/kapu/sales-skills-engine/internal/util"
	"github.com/kapu/sales-skills-engine/pkg/errors"
)

// CacheStatus reports, per skill, whether an assessment is already cached.
// It never writes.
func (s *Service) CacheStatus(ctx context.Context, req CacheStatusRequest) (map[string]bool, error) {
	if strings.TrimSpace(req.Transcript) == "" || req.SellerID == "" || req.Skills == nil {
		return nil, errors.NewValidationError("Missing 'transcript', 'sellerId', or 'skills'.", "body", nil)
	}

	transcript := util.NormalizeTranscript(req.Transcript)
	status := make(map[string]bool, len(req.Skills))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(s.cfg.Concurrency)
	for _, skill := range req.Skills {
		p.Go(func() {
			cached := false
			if hash, err := s.cache.Keys().SkillKeyHash(transcript, req.SellerID, skill); err == nil {
				cached = s.cache.Exists(ctx, s.cache.Keys().AssessmentKey(hash))
			}
			mu.Lock()
			status[skill] = cached
			mu.Unlock()
		})
	}
	p.Wait()
	return status, nil
}
