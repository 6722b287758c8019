package assessment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/internal/constants"
	"github.com/kapu/sales-skills-engine/internal/domain"
	"github.com/kapu/sales-skills-engine/internal/prompt"
	"github.com/kapu/sales-skills-engine/internal/service/ai"
	"github.com/kapu/sales-skills-engine/internal/util"
	"github.com/kapu/sales-skills-engine/pkg/errors"
)

// Qualify picks the catalog skills the transcript gives enough evidence for
// and flags which of them already have a cached assessment.
func (s *Service) Qualify(ctx context.Context, req QualifyRequest) (*domain.Qualification, error) {
	if strings.TrimSpace(req.Transcript) == "" || req.AllSkills == nil || req.SellerID == "" {
		return nil, errors.NewValidationError("Missing 'transcript', 'allSkills', or 'sellerId'.", "body", nil)
	}
	start := time.Now()
	defer func() { s.metrics.ObserveStage(StageQualify, time.Since(start)) }()

	var hints []domain.CompetencyHint
	set, setErr := s.rubrics.Load(ctx, s.cfg.RubricSet)
	if setErr == nil {
		hints = set.Hints(constants.PipelineConfig.HintSkillsPerGroup)
	} else {
		s.logger.Debug("Rubric hints unavailable", zap.Error(setErr))
	}

	// an empty catalog means every skill the rubric knows
	catalog := req.AllSkills
	if len(catalog) == 0 {
		if setErr != nil {
			return nil, setErr
		}
		catalog = set.SkillNames()
	}

	transcript := util.NormalizeTranscript(req.Transcript)
	key, err := s.cache.Keys().QualifyKey(transcript, req.SellerID, catalog)
	if err != nil {
		return nil, err
	}

	var cached domain.Qualification
	if s.cache.GetJSON(ctx, key, &cached) {
		s.logger.Info("Cache HIT for qualification", zap.String("seller", req.SellerID))
		return &cached, nil
	}
	s.logger.Info("Cache MISS for qualification", zap.String("seller", req.SellerID))

	userPrompt, err := s.prompts.BuildQualifyPrompt(req.SellerID, transcript, catalog, hints)
	if err != nil {
		return nil, err
	}

	content, err := s.complete(ctx, StageQualify, s.cfg.JudgeModel, prompt.QualifySystem, userPrompt,
		constants.ModelParams.QualifyTemperature, constants.ModelParams.QualifyMaxTokens)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		QualifiedSkills []string `json:"qualifiedSkills"`
	}
	if !ai.DecodeJSON(content, &parsed) {
		s.logger.Warn("Qualification output unparsable, continuing with no skills",
			zap.String("raw", util.TruncateString(content, 200)),
		)
	}

	names, rejected := filterToCatalog(parsed.QualifiedSkills, catalog)
	if rejected > 0 {
		s.logger.Info("Dropped qualified skills outside the catalog", zap.Int("rejected", rejected))
	}

	result := &domain.Qualification{
		QualifiedSkills: s.withCachedFlags(ctx, transcript, req.SellerID, names),
		SellerIdentity:  req.SellerID,
	}

	s.persist(ctx, key, result, s.cfg.QualifyTTL, zap.String("stage", StageQualify))
	return result, nil
}

// filterToCatalog keeps names that appear verbatim in catalog, first
// occurrence wins, model order preserved.
func filterToCatalog(names, catalog []string) ([]string, int) {
	allowed := make(map[string]struct{}, len(catalog))
	for _, c := range catalog {
		allowed[c] = struct{}{}
	}

	kept := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	rejected := 0
	for _, name := range names {
		if _, ok := allowed[name]; !ok {
			rejected++
			continue
		}
		if _, dup := seen[name]; dup {
			rejected++
			continue
		}
		seen[name] = struct{}{}
		kept = append(kept, name)
	}
	return kept, rejected
}

func (s *Service) withCachedFlags(ctx context.Context, transcript, sellerID string, names []string) []domain.QualifiedSkill {
	out := make([]domain.QualifiedSkill, len(names))
	if len(names) == 0 {
		return out
	}

	p := pool.New().WithMaxGoroutines(s.cfg.Concurrency)
	var mu sync.Mutex
	for idx, name := range names {
		p.Go(func() {
			cached := false
			if hash, err := s.cache.Keys().SkillKeyHash(transcript, sellerID, name); err == nil {
				cached = s.cache.Exists(ctx, s.cache.Keys().AssessmentKey(hash))
			}
			mu.Lock()
			out[idx] = domain.QualifiedSkill{Skill: name, Cached: cached}
			mu.Unlock()
		})
	}
	p.Wait()
	return out
}
